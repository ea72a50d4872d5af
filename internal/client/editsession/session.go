// Package editsession holds the single in-progress create or edit form for a
// customer record.
package editsession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kathulis/tabkeeper/internal/client/tasks"
	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
	"github.com/kathulis/tabkeeper/internal/pkg/validation"
)

var (
	ErrDraftActive    = errors.New("another draft is already open")
	ErrNoDraft        = errors.New("no draft is open")
	ErrUnknownField   = errors.New("unknown draft field")
	// ErrCommitInFlight is returned by a Commit started while another one is
	// still waiting on the service.
	ErrCommitInFlight = errors.New("a commit is already in flight")
)

// Mode says what the open draft will do on commit.
type Mode int

const (
	ModeNone Mode = iota
	ModeCreate
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	default:
		return "none"
	}
}

// Field names a draft input.
type Field string

const (
	FieldName        Field = "name"
	FieldBalance     Field = "balance"
	FieldPhoneNumber Field = "phone_number"
)

// Draft is the text the user has typed so far. Balance stays text until
// commit so a half-typed value like "-" can be held.
type Draft struct {
	TargetID    string `json:"-"`
	Name        string `json:"name"         validate:"notblank"`
	Balance     string `json:"balance"      validate:"notblank,decimal"`
	PhoneNumber string `json:"phone_number" validate:"notblank"`
}

// Writer is the part of the record service a commit needs.
type Writer interface {
	CreateCustomer(ctx context.Context, in ports.CustomerInput) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, in ports.CustomerInput) (domain.Customer, error)
}

// Refresher is signalled after every successful commit.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Session owns at most one draft. It is safe for concurrent use.
type Session struct {
	writer   Writer
	list     Refresher
	tasks    *tasks.Tracker
	validate *validator.Validate
	log      zerolog.Logger

	mu    sync.Mutex
	mode  Mode
	draft *Draft
}

// New returns a Session with no open draft. list may be nil. tracker may be
// shared with other components; nil gets a private one.
func New(writer Writer, list Refresher, tracker *tasks.Tracker, log zerolog.Logger) *Session {
	if tracker == nil {
		tracker = &tasks.Tracker{}
	}
	return &Session{
		writer:   writer,
		list:     list,
		tasks:    tracker,
		validate: validation.New(),
		log:      log.With().Str("component", "editsession").Logger(),
	}
}

// BeginCreate opens an empty draft in create mode.
func (s *Session) BeginCreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != nil {
		return fmt.Errorf("begin create: %w (%s)", ErrDraftActive, s.mode)
	}
	s.mode = ModeCreate
	s.draft = &Draft{}
	return nil
}

// BeginEdit opens a draft for rec, pre-filled with its current values.
func (s *Session) BeginEdit(rec domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != nil {
		return fmt.Errorf("begin edit: %w (%s)", ErrDraftActive, s.mode)
	}
	s.mode = ModeEdit
	s.draft = &Draft{
		TargetID:    rec.ID,
		Name:        rec.Name,
		Balance:     rec.Balance.String(),
		PhoneNumber: rec.PhoneNumber,
	}
	return nil
}

// SetField stores value as typed. Nothing is validated until Commit.
func (s *Session) SetField(f Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return ErrNoDraft
	}
	switch f {
	case FieldName:
		s.draft.Name = value
	case FieldBalance:
		s.draft.Balance = value
	case FieldPhoneNumber:
		s.draft.PhoneNumber = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return nil
}

// Commit validates the draft and sends it. Validation failures return a
// *domain.ValidationError without touching the network. A service failure
// keeps the draft so the user can retry; success clears it and refreshes the
// list. Only one commit runs at a time; an overlapping call returns
// ErrCommitInFlight and sends nothing.
func (s *Session) Commit(ctx context.Context) (domain.Customer, error) {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return domain.Customer{}, ErrNoDraft
	}
	open := s.draft
	snapshot := *open
	mode := s.mode
	s.mu.Unlock()

	in, err := s.check(snapshot)
	if err != nil {
		return domain.Customer{}, err
	}

	sendCtx, tok, ok := s.tasks.TryStart(ctx, tasks.KeyCommit)
	if !ok {
		return domain.Customer{}, fmt.Errorf("commit %s: %w", mode, ErrCommitInFlight)
	}
	var rec domain.Customer
	if mode == ModeCreate {
		rec, err = s.writer.CreateCustomer(sendCtx, in)
	} else {
		rec, err = s.writer.UpdateCustomer(sendCtx, snapshot.TargetID, in)
	}
	s.tasks.Finish(tok)
	if err != nil {
		s.log.Warn().Err(err).Str("mode", mode.String()).Str("id", snapshot.TargetID).Msg("commit failed, draft kept")
		return domain.Customer{}, fmt.Errorf("commit %s: %w", mode, err)
	}

	s.mu.Lock()
	// Cancel or a new draft may have happened while the request was out.
	if s.draft == open {
		s.draft = nil
		s.mode = ModeNone
	}
	s.mu.Unlock()

	s.log.Info().Str("mode", mode.String()).Str("id", rec.ID).Msg("draft committed")

	if s.list != nil {
		if err := s.list.Refresh(ctx); err != nil {
			s.log.Warn().Err(err).Msg("refresh after commit failed")
		}
	}
	return rec, nil
}

// Cancel discards any open draft. No network call is made.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
	s.mode = ModeNone
}

// Mode reports what the open draft will do, or ModeNone.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Draft returns a copy of the open draft.
func (s *Session) Draft() (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return Draft{}, false
	}
	return *s.draft, true
}

func (s *Session) check(d Draft) (ports.CustomerInput, error) {
	if err := s.validate.Struct(d); err != nil {
		if fields := validation.FieldMessages(err); fields != nil {
			return ports.CustomerInput{}, &domain.ValidationError{Fields: fields}
		}
		return ports.CustomerInput{}, err
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(d.Balance))
	if err != nil {
		return ports.CustomerInput{}, &domain.ValidationError{Fields: map[string]string{string(FieldBalance): "balance must be a number"}}
	}
	return ports.CustomerInput{
		Name:        d.Name,
		PhoneNumber: d.PhoneNumber,
		Balance:     balance,
	}, nil
}
