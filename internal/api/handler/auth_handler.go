package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kathulis/tabkeeper/internal/api/metrics"
	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates the admin or a customer and returns a JWT token.
//
// @Summary      Login
// @Description  role must be "admin" or "customer". Customers log in with the password generated when their record was created.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid", "failure").Inc()
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Name, req.Password, role)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(role.String(), "failure").Inc()
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "customer not found")
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues(role.String(), "success").Inc()
	return c.JSON(http.StatusOK, loginResponse{
		Status:     http.StatusOK,
		Role:       res.Role.String(),
		Name:       res.Name,
		Token:      res.Token,
		CustomerID: res.CustomerID,
	})
}
