package handler

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// --- Request / Response types ---

// customerRequest is the body of create and update. Balance accepts a JSON
// number or a numeric string.
type customerRequest struct {
	Name        string           `json:"name"         validate:"notblank"`
	Balance     *decimal.Decimal `json:"balance"      validate:"required" swaggertype:"number"`
	PhoneNumber string           `json:"phone_number" validate:"notblank"`
}

func (r customerRequest) input() ports.CustomerInput {
	in := ports.CustomerInput{Name: r.Name, PhoneNumber: r.PhoneNumber}
	if r.Balance != nil {
		in.Balance = *r.Balance
	}
	return in
}

type customerResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Balance     json.Number `json:"balance" swaggertype:"number"`
	PhoneNumber string      `json:"phone_number"`
	// Password is only present in the response to a create.
	Password string `json:"password,omitempty"`
}

type customerListResponse struct {
	Customers []customerResponse `json:"customers"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type loginRequest struct {
	Name     string `json:"name"     validate:"notblank"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"required"`
}

type loginResponse struct {
	Status     int    `json:"status"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Token      string `json:"token"`
	CustomerID string `json:"customer_id,omitempty"`
}

// --- Mappers ---

func toCustomerResponse(c *domain.Customer) customerResponse {
	return customerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Balance:     json.Number(c.Balance.String()),
		PhoneNumber: c.PhoneNumber,
		Password:    c.Password,
	}
}

func toCustomerListResponse(cs []*domain.Customer) customerListResponse {
	out := customerListResponse{Customers: make([]customerResponse, 0, len(cs))}
	for _, c := range cs {
		out.Customers = append(out.Customers, toCustomerResponse(c))
	}
	return out
}
