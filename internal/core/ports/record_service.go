package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kathulis/tabkeeper/internal/core/domain"
)

// CustomerInput carries the admin-editable fields of a customer record.
type CustomerInput struct {
	Name        string
	PhoneNumber string
	Balance     decimal.Decimal
}

// RecordService is the remote customer-record service as seen by the client.
// Implementations never panic; failed calls return an error value.
type RecordService interface {
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, in CustomerInput) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, in CustomerInput) (domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	Login(ctx context.Context, name, password string, role domain.Role) (domain.Session, error)
}
