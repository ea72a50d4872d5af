package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerAction names a mutation recorded in the audit trail.
type CustomerAction string

const (
	ActionCreated CustomerAction = "created"
	ActionUpdated CustomerAction = "updated"
	ActionDeleted CustomerAction = "deleted"
)

// CustomerEvent is one audit entry for a customer mutation. Balance is the
// balance after the mutation; zero for deletes.
type CustomerEvent struct {
	ID         string
	CustomerID string
	Action     CustomerAction
	Actor      string
	Balance    decimal.Decimal
	Timestamp  time.Time
}
