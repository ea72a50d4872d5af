package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRole = errors.New("invalid role")

// Role is the closed set of actors that can log in.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// ParseRole maps the wire string to a Role. Anything other than "admin" or
// "customer" (case-insensitive) is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleCustomer:
		return RoleCustomer, nil
	}
	return "", fmt.Errorf("%w: %q (must be admin or customer)", ErrInvalidRole, s)
}

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}
