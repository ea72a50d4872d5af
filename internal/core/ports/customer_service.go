package ports

import (
	"context"

	"github.com/kathulis/tabkeeper/internal/core/domain"
)

// Caller identifies who is invoking a customer use case. Customers are scoped
// to their own record; admins see everything.
type Caller struct {
	Name       string
	Role       domain.Role
	CustomerID string
}

// CustomerService defines use-case operations for customer records.
type CustomerService interface {
	ListCustomers(ctx context.Context, caller Caller) ([]*domain.Customer, error)
	GetCustomer(ctx context.Context, caller Caller, id string) (*domain.Customer, error)
	// CreateCustomer returns the stored record with the generated plaintext
	// password set; it is not retrievable afterwards.
	CreateCustomer(ctx context.Context, caller Caller, in CustomerInput) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, caller Caller, id string, in CustomerInput) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, caller Caller, id string) error
}
