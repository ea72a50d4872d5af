package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/kathulis/tabkeeper/internal/api/handler"
	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
	"github.com/kathulis/tabkeeper/internal/core/service"
)

const testSecret = "router-test-secret"

type finder map[string]*domain.Customer

func (f finder) FindByName(_ context.Context, name string) (*domain.Customer, error) {
	if c, ok := f[name]; ok {
		return c, nil
	}
	return nil, domain.ErrCustomerNotFound
}

type stubCustomers struct {
	created []ports.CustomerInput
	fail    error
}

func (s *stubCustomers) ListCustomers(_ context.Context, caller ports.Caller) ([]*domain.Customer, error) {
	if caller.Role == domain.RoleCustomer {
		return []*domain.Customer{{ID: caller.CustomerID, Name: caller.Name, PhoneNumber: "071", Balance: decimal.NewFromInt(50)}}, nil
	}
	return []*domain.Customer{
		{ID: "c1", Name: "Sam", PhoneNumber: "071", Balance: decimal.NewFromInt(50)},
		{ID: "c2", Name: "Lee", PhoneNumber: "072", Balance: decimal.Zero},
	}, nil
}

func (s *stubCustomers) GetCustomer(_ context.Context, _ ports.Caller, id string) (*domain.Customer, error) {
	return nil, domain.ErrCustomerNotFound
}

func (s *stubCustomers) CreateCustomer(_ context.Context, _ ports.Caller, in ports.CustomerInput) (*domain.Customer, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.created = append(s.created, in)
	return &domain.Customer{ID: "c3", Name: in.Name, PhoneNumber: in.PhoneNumber, Balance: in.Balance, Password: "Ab12Cd34"}, nil
}

func (s *stubCustomers) UpdateCustomer(_ context.Context, _ ports.Caller, id string, in ports.CustomerInput) (*domain.Customer, error) {
	return nil, domain.ErrCustomerNotFound
}

func (s *stubCustomers) DeleteCustomer(_ context.Context, _ ports.Caller, id string) error {
	return nil
}

func newTestRouter(t *testing.T, customers *stubCustomers, checks map[string]handler.CheckFunc) *echo.Echo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Xy12Ab34"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	auth := service.NewAuthService(
		finder{"Sam": {ID: "c1", Name: "Sam", PasswordHash: string(hash)}},
		service.AdminCredentials{Name: "Thuli", Password: "tavern"},
		testSecret, time.Hour, zerolog.Nop(),
	)
	return NewRouter(Deps{
		Customers: customers,
		Auth:      auth,
		JWTSecret: testSecret,
		Checks:    checks,
		Log:       zerolog.Nop(),
		Registry:  prometheus.NewRegistry(),
	})
}

func do(e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo, name, password, role string) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/login", "", `{"name":"`+name+`","password":"`+password+`","role":"`+role+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", name, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login %s: no token in %s", name, rec.Body.String())
	}
	return resp.Token
}

func TestRouter_AdminFlow(t *testing.T) {
	customers := &stubCustomers{}
	e := newTestRouter(t, customers, nil)
	token := login(t, e, "Thuli", "tavern", "admin")

	rec := do(e, http.MethodGet, "/customers/", token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Lee"`) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/customers/", token, `{"name":"Kim","balance":"7.25","phone_number":"073"}`)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"password":"Ab12Cd34"`) {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	if len(customers.created) != 1 || customers.created[0].Balance.String() != "7.25" {
		t.Fatalf("unexpected created input: %+v", customers.created)
	}

	rec = do(e, http.MethodPut, "/customers/nope", token, `{"name":"Kim","balance":1,"phone_number":"073"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update unknown: expected 404, got %d", rec.Code)
	}
}

func TestRouter_CustomerIsScopedAndCannotMutate(t *testing.T) {
	e := newTestRouter(t, &stubCustomers{}, nil)
	token := login(t, e, "Sam", "Xy12Ab34", "customer")

	rec := do(e, http.MethodGet, "/customers/", token, "")
	var list struct {
		Customers []struct {
			ID string `json:"id"`
		} `json:"customers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec.Code != http.StatusOK || len(list.Customers) != 1 || list.Customers[0].ID != "c1" {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		target := "/customers/c1"
		if method == http.MethodPost {
			target = "/customers/"
		}
		rec := do(e, method, target, token, `{"name":"Sam","balance":0,"phone_number":"071"}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", method, rec.Code)
		}
	}
}

func TestRouter_LoginErrors(t *testing.T) {
	e := newTestRouter(t, &stubCustomers{}, nil)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"wrong admin password", `{"name":"Thuli","password":"nope","role":"admin"}`, http.StatusUnauthorized},
		{"unknown customer", `{"name":"Ghost","password":"x","role":"customer"}`, http.StatusNotFound},
		{"bad role", `{"name":"Thuli","password":"tavern","role":"owner"}`, http.StatusBadRequest},
		{"missing password", `{"name":"Thuli","role":"admin"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/login", "", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d (%s)", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	e := newTestRouter(t, &stubCustomers{}, nil)
	rec := do(e, http.MethodGet, "/customers/", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_ValidationAndConflict(t *testing.T) {
	customers := &stubCustomers{}
	e := newTestRouter(t, customers, nil)
	token := login(t, e, "Thuli", "tavern", "admin")

	rec := do(e, http.MethodPost, "/customers/", token, `{"name":" ","phone_number":"073"}`)
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity || body.Fields["name"] == "" || body.Fields["balance"] == "" {
		t.Fatalf("validation: %d %s", rec.Code, rec.Body.String())
	}

	customers.fail = domain.ErrPhoneExists
	rec = do(e, http.MethodPost, "/customers/", token, `{"name":"Kim","balance":1,"phone_number":"071"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate phone: expected 409, got %d", rec.Code)
	}

	customers.fail = errors.New("mongo exploded")
	rec = do(e, http.MethodPost, "/customers/", token, `{"name":"Kim","balance":1,"phone_number":"074"}`)
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "exploded") {
		t.Fatalf("internal: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	e := newTestRouter(t, &stubCustomers{}, map[string]handler.CheckFunc{
		"mongodb": func(context.Context) error { return nil },
	})

	if rec := do(e, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/swagger/doc.json", "", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/customers/") {
		t.Fatalf("swagger: %d", rec.Code)
	}
}
