package ports

import (
	"context"

	"github.com/kathulis/tabkeeper/internal/core/domain"
)

// LoginResult is returned after a successful login.
type LoginResult struct {
	Token      string
	Name       string
	Role       domain.Role
	CustomerID string
}

type AuthService interface {
	Login(ctx context.Context, name, password string, role domain.Role) (*LoginResult, error)
}
