package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

const (
	passwordLength   = 8
	passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// SnapshotCache abstracts the cached copy of the full customer list (Redis).
// Every Invalidate bumps a version; Set only stores a list read under the
// version that is still current, so a fill racing a write is dropped.
type SnapshotCache interface {
	Get(ctx context.Context) ([]*domain.Customer, bool, error)
	Version(ctx context.Context) (int64, error)
	Set(ctx context.Context, version int64, customers []*domain.Customer) (bool, error)
	Invalidate(ctx context.Context) error
}

// AuditPublisher accepts audit events for asynchronous persistence.
type AuditPublisher interface {
	Publish(event domain.CustomerEvent)
}

type customerService struct {
	repo     ports.CustomerRepository
	snapshot SnapshotCache
	audit    AuditPublisher
	log      zerolog.Logger
}

// NewCustomerService returns a CustomerService. snapshot and audit may be nil.
func NewCustomerService(repo ports.CustomerRepository, snapshot SnapshotCache, audit AuditPublisher, log zerolog.Logger) ports.CustomerService {
	return &customerService{repo: repo, snapshot: snapshot, audit: audit, log: log}
}

// ListCustomers returns every customer for admins and only the caller's own
// record for customers.
func (s *customerService) ListCustomers(ctx context.Context, caller ports.Caller) ([]*domain.Customer, error) {
	switch caller.Role {
	case domain.RoleAdmin:
		return s.listAll(ctx)
	case domain.RoleCustomer:
		own, err := s.own(ctx, caller)
		if err != nil {
			if errors.Is(err, domain.ErrCustomerNotFound) {
				return []*domain.Customer{}, nil
			}
			return nil, err
		}
		return []*domain.Customer{own}, nil
	default:
		return nil, domain.ErrForbidden
	}
}

func (s *customerService) listAll(ctx context.Context) ([]*domain.Customer, error) {
	if s.snapshot != nil {
		cached, ok, err := s.snapshot.Get(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("snapshot read failed, falling back to store")
		} else if ok {
			return cached, nil
		}
	}

	var (
		version   int64
		cacheable = s.snapshot != nil
	)
	if cacheable {
		v, err := s.snapshot.Version(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("snapshot version read failed, not caching")
			cacheable = false
		}
		version = v
	}

	customers, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	if cacheable {
		stored, err := s.snapshot.Set(ctx, version, customers)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("snapshot write failed")
		case !stored:
			s.log.Debug().Int64("version", version).Msg("snapshot fill skipped, list changed meanwhile")
		}
	}
	return customers, nil
}

func (s *customerService) own(ctx context.Context, caller ports.Caller) (*domain.Customer, error) {
	if caller.CustomerID != "" {
		return s.repo.FindByID(ctx, caller.CustomerID)
	}
	return s.repo.FindByName(ctx, caller.Name)
}

// GetCustomer returns one record. A customer asking for someone else's record
// gets ErrCustomerNotFound.
func (s *customerService) GetCustomer(ctx context.Context, caller ports.Caller, id string) (*domain.Customer, error) {
	switch caller.Role {
	case domain.RoleAdmin:
	case domain.RoleCustomer:
		if caller.CustomerID != id {
			return nil, domain.ErrCustomerNotFound
		}
	default:
		return nil, domain.ErrForbidden
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// CreateCustomer stores a new customer with a generated password. The
// plaintext password is set on the returned record only.
func (s *customerService) CreateCustomer(ctx context.Context, caller ports.Caller, in ports.CustomerInput) (*domain.Customer, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}

	password, err := generatePassword()
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	now := time.Now().UTC()
	c := &domain.Customer{
		Name:         in.Name,
		PhoneNumber:  in.PhoneNumber,
		Balance:      in.Balance,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		s.log.Warn().Err(err).Str("phone_number", in.PhoneNumber).Msg("create customer failed")
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.mutated(ctx, caller, c.ID, domain.ActionCreated, c)
	created := *c
	created.Password = password
	return &created, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, caller ports.Caller, id string, in ports.CustomerInput) (*domain.Customer, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	c, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	s.mutated(ctx, caller, id, domain.ActionUpdated, c)
	return c, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, caller ports.Caller, id string) error {
	if caller.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	s.mutated(ctx, caller, id, domain.ActionDeleted, nil)
	return nil
}

// mutated drops the list snapshot and queues an audit event. Neither failure
// undoes the mutation.
func (s *customerService) mutated(ctx context.Context, caller ports.Caller, id string, action domain.CustomerAction, c *domain.Customer) {
	if s.snapshot != nil {
		if err := s.snapshot.Invalidate(ctx); err != nil {
			s.log.Warn().Err(err).Str("customer_id", id).Msg("snapshot invalidate failed")
		}
	}

	ev := domain.CustomerEvent{
		ID:         uuid.NewString(),
		CustomerID: id,
		Action:     action,
		Actor:      caller.Name,
		Timestamp:  time.Now().UTC(),
	}
	if c != nil {
		ev.Balance = c.Balance
	}
	if s.audit != nil {
		s.audit.Publish(ev)
	}

	s.log.Info().
		Str("customer_id", id).
		Str("action", string(action)).
		Str("actor", caller.Name).
		Msg("customer mutated")
}

func checkInput(in ports.CustomerInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		fields["phone_number"] = "phone_number is required"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// generatePassword returns a random alphanumeric password.
func generatePassword() (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, passwordLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}
