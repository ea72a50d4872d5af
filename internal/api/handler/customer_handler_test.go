package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stub service
// ---------------------------------------------------------------------------

type stubCustomerService struct {
	lastCaller ports.Caller
	lastID     string
	lastInput  ports.CustomerInput
	err        error
	customers  []*domain.Customer
}

func (s *stubCustomerService) ListCustomers(_ context.Context, caller ports.Caller) ([]*domain.Customer, error) {
	s.lastCaller = caller
	return s.customers, s.err
}

func (s *stubCustomerService) GetCustomer(_ context.Context, caller ports.Caller, id string) (*domain.Customer, error) {
	s.lastCaller, s.lastID = caller, id
	if s.err != nil {
		return nil, s.err
	}
	return s.customers[0], nil
}

func (s *stubCustomerService) CreateCustomer(_ context.Context, caller ports.Caller, in ports.CustomerInput) (*domain.Customer, error) {
	s.lastCaller, s.lastInput = caller, in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Customer{ID: "c1", Name: in.Name, PhoneNumber: in.PhoneNumber, Balance: in.Balance, Password: "Xy12Ab34"}, nil
}

func (s *stubCustomerService) UpdateCustomer(_ context.Context, caller ports.Caller, id string, in ports.CustomerInput) (*domain.Customer, error) {
	s.lastCaller, s.lastID, s.lastInput = caller, id, in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Customer{ID: id, Name: in.Name, PhoneNumber: in.PhoneNumber, Balance: in.Balance}, nil
}

func (s *stubCustomerService) DeleteCustomer(_ context.Context, caller ports.Caller, id string) error {
	s.lastCaller, s.lastID = caller, id
	return s.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func adminContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("role", "admin")
	c.Set("name", "Thuli")
	return c, rec
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCustomerHandler_List(t *testing.T) {
	e := newEcho()
	stub := &stubCustomerService{customers: []*domain.Customer{
		{ID: "1", Name: "Sam", PhoneNumber: "0712345678", Balance: decimal.RequireFromString("50.0")},
	}}
	c, rec := adminContext(e, http.MethodGet, "/customers/", "")

	if err := NewCustomerHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := `{"customers":[{"id":"1","name":"Sam","balance":50,"phone_number":"0712345678"}]}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Fatalf("body = %s\nwant  %s", got, want)
	}
	if stub.lastCaller.Role != domain.RoleAdmin || stub.lastCaller.Name != "Thuli" {
		t.Fatalf("caller not forwarded: %+v", stub.lastCaller)
	}
}

func TestCustomerHandler_List_MissingClaims(t *testing.T) {
	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/customers/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := NewCustomerHandler(&stubCustomerService{}).List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestCustomerHandler_Create(t *testing.T) {
	e := newEcho()
	stub := &stubCustomerService{}
	c, rec := adminContext(e, http.MethodPost, "/customers/", `{"name":"Sam","balance":12.5,"phone_number":"0712345678"}`)

	if err := NewCustomerHandler(stub).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !stub.lastInput.Balance.Equal(decimal.RequireFromString("12.5")) || stub.lastInput.Name != "Sam" {
		t.Fatalf("unexpected input: %+v", stub.lastInput)
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if string(resp["balance"]) != "12.5" || string(resp["password"]) != `"Xy12Ab34"` {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestCustomerHandler_Create_Validation(t *testing.T) {
	e := newEcho()
	stub := &stubCustomerService{}
	c, _ := adminContext(e, http.MethodPost, "/customers/", `{"name":"","phone_number":"071"}`)

	err := NewCustomerHandler(stub).Create(c)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field("name") == "" || ve.Field("balance") == "" {
		t.Fatalf("expected name and balance errors, got %v", err)
	}
	if stub.lastInput.PhoneNumber != "" {
		t.Fatalf("service must not be called")
	}
}

func TestCustomerHandler_Create_NonNumericBalance(t *testing.T) {
	e := newEcho()
	c, _ := adminContext(e, http.MethodPost, "/customers/", `{"name":"Sam","balance":"lots","phone_number":"071"}`)

	err := NewCustomerHandler(&stubCustomerService{}).Create(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestCustomerHandler_Update_NotFound(t *testing.T) {
	e := newEcho()
	stub := &stubCustomerService{err: domain.ErrCustomerNotFound}
	c, _ := adminContext(e, http.MethodPut, "/customers/99", `{"name":"Sam","balance":-20,"phone_number":"071"}`)
	c.SetParamNames("id")
	c.SetParamValues("99")

	err := NewCustomerHandler(stub).Update(c)
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
	if stub.lastID != "99" || !stub.lastInput.Balance.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("unexpected args: %s %+v", stub.lastID, stub.lastInput)
	}
}

func TestCustomerHandler_Delete(t *testing.T) {
	e := newEcho()
	stub := &stubCustomerService{}
	c, rec := adminContext(e, http.MethodDelete, "/customers/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := NewCustomerHandler(stub).Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "deleted") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if stub.lastID != "1" {
		t.Fatalf("id not forwarded")
	}
}

func TestCustomerHandler_CustomerScope(t *testing.T) {
	e := newEcho()
	stub := &stubCustomerService{customers: []*domain.Customer{}}
	req := httptest.NewRequest(http.MethodGet, "/customers/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("role", "customer")
	c.Set("name", "Sam")
	c.Set("customer_id", "c1")

	if err := NewCustomerHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.lastCaller.Role != domain.RoleCustomer || stub.lastCaller.CustomerID != "c1" {
		t.Fatalf("unexpected caller: %+v", stub.lastCaller)
	}
}
