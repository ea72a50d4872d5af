// Package recordapitest provides an in-memory ports.RecordService for tests of
// the packages built on top of recordapi.
package recordapitest

import (
	"context"
	"strconv"
	"sync"

	"github.com/kathulis/tabkeeper/internal/client/recordapi"
	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

// Call records one invocation of the fake.
type Call struct {
	Op    string
	ID    string
	Input ports.CustomerInput
}

// Service is a goroutine-safe fake backend. Records keep insertion order.
type Service struct {
	mu      sync.Mutex
	records []domain.Customer
	nextID  int
	calls   []Call

	// Fail, when set, is consulted before each operation; a non-nil return
	// value is returned instead of performing it.
	Fail func(op string) error
	// Block, when set, is called before each operation and may wait on ctx.
	Block func(ctx context.Context, op string) error
}

// New returns a fake seeded with records.
func New(records ...domain.Customer) *Service {
	s := &Service{records: append([]domain.Customer(nil), records...), nextID: len(records)}
	return s
}

// Calls returns the invocations seen so far.
func (s *Service) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many times op was invoked.
func (s *Service) CallCount(op string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (s *Service) begin(ctx context.Context, c Call) error {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	fail, block := s.Fail, s.Block
	s.mu.Unlock()

	if block != nil {
		if err := block(ctx, c.Op); err != nil {
			return err
		}
	}
	if fail != nil {
		return fail(c.Op)
	}
	return nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	if err := s.begin(ctx, Call{Op: "list"}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Customer(nil), s.records...), nil
}

func (s *Service) CreateCustomer(ctx context.Context, in ports.CustomerInput) (domain.Customer, error) {
	if err := s.begin(ctx, Call{Op: "create", Input: in}); err != nil {
		return domain.Customer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec := domain.Customer{
		ID:          strconv.Itoa(s.nextID),
		Name:        in.Name,
		PhoneNumber: in.PhoneNumber,
		Balance:     in.Balance,
		Password:    "pw" + strconv.Itoa(s.nextID),
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, in ports.CustomerInput) (domain.Customer, error) {
	if err := s.begin(ctx, Call{Op: "update", ID: id, Input: in}); err != nil {
		return domain.Customer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Name = in.Name
			s.records[i].PhoneNumber = in.PhoneNumber
			s.records[i].Balance = in.Balance
			return s.records[i], nil
		}
	}
	return domain.Customer{}, notFound("update customer")
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.begin(ctx, Call{Op: "delete", ID: id}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return notFound("delete customer")
}

func (s *Service) Login(ctx context.Context, name, password string, role domain.Role) (domain.Session, error) {
	if err := s.begin(ctx, Call{Op: "login"}); err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Name: name, Role: role, Token: "fake-token"}, nil
}

func notFound(op string) error {
	return &recordapi.ServiceError{Kind: recordapi.KindNotFound, Op: op, Status: 404, Message: "customer not found"}
}

var _ ports.RecordService = (*Service)(nil)
