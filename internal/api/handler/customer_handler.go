package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kathulis/tabkeeper/internal/api/metrics"
	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

// CustomerHandler handles HTTP requests for customer records.
type CustomerHandler struct {
	service ports.CustomerService
}

func NewCustomerHandler(service ports.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

// List handles GET /customers/.
//
// @Summary      List customers
// @Description  Admins get every customer in insertion order; a customer gets only their own record.
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  customerListResponse
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /customers/ [get]
func (h *CustomerHandler) List(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	customers, err := h.service.ListCustomers(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomerListResponse(customers))
}

// Get handles GET /customers/:id.
//
// @Summary      Get a customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Customer id"
// @Success      200  {object}  customerResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	customer, err := h.service.GetCustomer(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomerResponse(customer))
}

// Create handles POST /customers/.
//
// @Summary      Create a customer
// @Description  Generates an 8-character password that is returned only in this response.
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      customerRequest  true  "Customer fields"
// @Success      201   {object}  customerResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /customers/ [post]
func (h *CustomerHandler) Create(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	req, err := bindCustomer(c)
	if err != nil {
		return err
	}

	customer, err := h.service.CreateCustomer(c.Request().Context(), caller, req.input())
	if err != nil {
		return err
	}
	metrics.CustomersMutatedTotal.WithLabelValues(string(domain.ActionCreated)).Inc()
	return c.JSON(http.StatusCreated, toCustomerResponse(customer))
}

// Update handles PUT /customers/:id.
//
// @Summary      Update a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Customer id"
// @Param        body  body      customerRequest  true  "Customer fields"
// @Success      200   {object}  customerResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	req, err := bindCustomer(c)
	if err != nil {
		return err
	}

	customer, err := h.service.UpdateCustomer(c.Request().Context(), caller, c.Param("id"), req.input())
	if err != nil {
		return err
	}
	metrics.CustomersMutatedTotal.WithLabelValues(string(domain.ActionUpdated)).Inc()
	return c.JSON(http.StatusOK, toCustomerResponse(customer))
}

// Delete handles DELETE /customers/:id.
//
// @Summary      Delete a customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Customer id"
// @Success      200  {object}  detailResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) Delete(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteCustomer(c.Request().Context(), caller, c.Param("id")); err != nil {
		return err
	}
	metrics.CustomersMutatedTotal.WithLabelValues(string(domain.ActionDeleted)).Inc()
	return c.JSON(http.StatusOK, detailResponse{Detail: "Customer deleted successfully"})
}

func bindCustomer(c echo.Context) (customerRequest, error) {
	var req customerRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return req, err
	}
	return req, nil
}
