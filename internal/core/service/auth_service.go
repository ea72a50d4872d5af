package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

// CustomerFinder is the lookup customer logins need.
type CustomerFinder interface {
	FindByName(ctx context.Context, name string) (*domain.Customer, error)
}

// AdminCredentials is the single venue admin account.
type AdminCredentials struct {
	Name     string
	Password string
}

// AuthService implements login for the admin and for customers.
type AuthService struct {
	customers CustomerFinder
	admin     AdminCredentials
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(customers CustomerFinder, admin AdminCredentials, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{customers: customers, admin: admin, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log}
}

// Login checks name and password against the account for role. An unknown
// customer name yields ErrCustomerNotFound, a wrong password
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, name, password string, role domain.Role) (*ports.LoginResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	if name == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	result := &ports.LoginResult{Name: name, Role: role}
	switch role {
	case domain.RoleAdmin:
		if !s.adminMatches(name, password) {
			s.log.Warn().Str("name", name).Msg("admin login rejected")
			return nil, domain.ErrInvalidCredentials
		}
	case domain.RoleCustomer:
		c, err := s.customers.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
			s.log.Warn().Str("name", name).Msg("customer login rejected")
			return nil, domain.ErrInvalidCredentials
		}
		result.CustomerID = c.ID
	}

	token, err := s.generateToken(result)
	if err != nil {
		return nil, err
	}
	result.Token = token
	return result, nil
}

func (s *AuthService) adminMatches(name, password string) bool {
	if s.admin.Password == "" {
		return false
	}
	nameOK := subtle.ConstantTimeCompare([]byte(name), []byte(s.admin.Name)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	return nameOK && passOK
}

func (s *AuthService) generateToken(r *ports.LoginResult) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"name":        r.Name,
		"role":        string(r.Role),
		"customer_id": r.CustomerID,
		"iat":         now.Unix(),
		"exp":         now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
