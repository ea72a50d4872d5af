package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrCustomerNotFound = errors.New("customer not found")
var ErrPhoneExists = errors.New("phone number already exists")
var ErrForbidden = errors.New("access forbidden")

// Customer is a person running a tab at the venue. ID is assigned by the
// backend and never changes. Balance is the signed amount owed.
type Customer struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	PhoneNumber  string          `json:"phone_number"`
	Balance      decimal.Decimal `json:"balance"`
	Password     string          `json:"password,omitempty"`
	PasswordHash string          `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
