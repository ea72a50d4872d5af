package ports

import (
	"context"

	"github.com/kathulis/tabkeeper/internal/core/domain"
)

// CustomerRepository defines persistence operations for customers.
type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	// List returns every customer in insertion order.
	List(ctx context.Context) ([]*domain.Customer, error)
	FindByID(ctx context.Context, id string) (*domain.Customer, error)
	FindByName(ctx context.Context, name string) (*domain.Customer, error)
	// Update overwrites name, phone number and balance. Returns
	// domain.ErrCustomerNotFound when id does not resolve.
	Update(ctx context.Context, id string, in CustomerInput) (*domain.Customer, error)
	Delete(ctx context.Context, id string) error
}

// AuditRecorder persists customer audit events.
type AuditRecorder interface {
	InsertEvent(ctx context.Context, event *domain.CustomerEvent) error
}
