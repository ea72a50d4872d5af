package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

// ctxCaller extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call:
//   - role must parse (presence proves the middleware ran).
//   - customer role requires a customer_id or a name to scope by.
func ctxCaller(c echo.Context) (ports.Caller, error) {
	raw, _ := c.Get("role").(string)
	role, err := domain.ParseRole(raw)
	if err != nil {
		return ports.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	caller := ports.Caller{Role: role}
	caller.Name, _ = c.Get("name").(string)
	caller.CustomerID, _ = c.Get("customer_id").(string)
	if role == domain.RoleCustomer && caller.CustomerID == "" && caller.Name == "" {
		return ports.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "token missing customer identity")
	}
	return caller, nil
}
