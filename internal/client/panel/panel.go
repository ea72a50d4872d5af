// Package panel is the view-model behind the admin and customer screens. It
// wires the record client, list cache, draft session and reminder links
// together and reports every failure as a Notice without disturbing state.
package panel

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kathulis/tabkeeper/internal/client/editsession"
	"github.com/kathulis/tabkeeper/internal/client/listcache"
	"github.com/kathulis/tabkeeper/internal/client/reminder"
	"github.com/kathulis/tabkeeper/internal/client/tasks"
	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

// ErrUnknownCustomer is returned when an id is not in the loaded list.
var ErrUnknownCustomer = errors.New("customer not in the loaded list")

// Options are the collaborators a Panel hands work to. Zero values are
// usable: notices are dropped and reminders cannot be opened.
type Options struct {
	Notifier  Notifier
	Opener    reminder.Opener
	Platform  reminder.Platform
	Reminders reminder.Template
}

// Panel is safe for concurrent use.
type Panel struct {
	svc      ports.RecordService
	session  *domain.Session
	cache    *listcache.Cache
	drafts   *editsession.Session
	tasks    *tasks.Tracker
	notify   Notifier
	opener   reminder.Opener
	platform reminder.Platform
	template reminder.Template
	log      zerolog.Logger
}

// New builds a Panel for session. svc must already authenticate as session.
// A nil session yields a logged-out panel whose actions return ErrNoSession.
func New(svc ports.RecordService, session *domain.Session, opts Options, log zerolog.Logger) *Panel {
	if session == nil {
		session = &domain.Session{}
	}
	log = log.With().Str("component", "panel").Str("user", session.Name).Str("role", session.Role.String()).Logger()
	tracker := &tasks.Tracker{}
	cache := listcache.New(svc, tracker, log)

	p := &Panel{
		svc:      svc,
		session:  session,
		cache:    cache,
		drafts:   editsession.New(svc, cache, tracker, log),
		tasks:    tracker,
		notify:   opts.Notifier,
		opener:   opts.Opener,
		platform: opts.Platform,
		template: opts.Reminders,
		log:      log,
	}
	if p.notify == nil {
		p.notify = discard{}
	}
	if p.opener == nil {
		p.opener = reminder.OpenerFunc(func(context.Context, string) error { return reminder.ErrLinkUnavailable })
	}
	if p.platform == "" {
		p.platform = reminder.PlatformOther
	}
	return p
}

// Session returns the session the panel acts for.
func (p *Panel) Session() *domain.Session { return p.session }

// Customers returns the loaded list.
func (p *Panel) Customers() []domain.Customer { return p.cache.Records() }

// Status returns the list's load state.
func (p *Panel) Status() listcache.Status { return p.cache.Status() }

// Drafts exposes the form state for field edits and rendering.
func (p *Panel) Drafts() *editsession.Session { return p.drafts }

// Load refreshes the customer list. A refresh overtaken by a newer one is
// not reported.
func (p *Panel) Load(ctx context.Context) error {
	if err := p.requireSession(); err != nil {
		return p.fail("Loading customers", err)
	}
	err := p.cache.Refresh(ctx)
	if errors.Is(err, listcache.ErrSuperseded) {
		return nil
	}
	if err != nil {
		return p.fail("Loading customers", err)
	}
	return nil
}

// NewCustomer opens an empty customer form.
func (p *Panel) NewCustomer() error {
	if err := p.requireAdmin(); err != nil {
		return p.fail("New customer", err)
	}
	if err := p.drafts.BeginCreate(); err != nil {
		return p.fail("New customer", err)
	}
	return nil
}

// Edit opens the form for the loaded customer id.
func (p *Panel) Edit(id string) error {
	if err := p.requireAdmin(); err != nil {
		return p.fail("Edit customer", err)
	}
	rec, ok := p.cache.Find(id)
	if !ok {
		return p.fail("Edit customer", fmt.Errorf("%w: %s", ErrUnknownCustomer, id))
	}
	if err := p.drafts.BeginEdit(rec); err != nil {
		return p.fail("Edit customer", err)
	}
	return nil
}

// Save commits the open form. On success the list has been refreshed; for a
// new customer the notice carries the generated password.
func (p *Panel) Save(ctx context.Context) (domain.Customer, error) {
	if err := p.requireAdmin(); err != nil {
		return domain.Customer{}, p.fail("Saving customer", err)
	}
	mode := p.drafts.Mode()
	rec, err := p.drafts.Commit(ctx)
	if err != nil {
		return domain.Customer{}, p.fail("Saving customer", err)
	}

	n := Notice{Level: LevelInfo, Title: "Customer saved", Detail: rec.Name}
	if mode == editsession.ModeCreate {
		n.Title = "Customer added"
		if rec.Password != "" {
			n.Detail = fmt.Sprintf("%s can log in with password %s", rec.Name, rec.Password)
		}
	}
	p.notify.Notify(n)
	return rec, nil
}

// Cancel discards the open form.
func (p *Panel) Cancel() { p.drafts.Cancel() }

// Delete removes a customer on the server and then reloads the list.
func (p *Panel) Delete(ctx context.Context, id string) error {
	if err := p.requireAdmin(); err != nil {
		return p.fail("Deleting customer", err)
	}
	if err := p.svc.DeleteCustomer(ctx, id); err != nil {
		return p.fail("Deleting customer", err)
	}
	p.log.Info().Str("id", id).Msg("customer deleted")
	p.notify.Notify(Notice{Level: LevelInfo, Title: "Customer deleted"})
	return p.Load(ctx)
}

// Remind opens a payment reminder for the loaded customer id and returns the
// link that was opened.
func (p *Panel) Remind(ctx context.Context, id string, channel reminder.Channel) (string, error) {
	if err := p.requireAdmin(); err != nil {
		return "", p.fail("Sending reminder", err)
	}
	rec, ok := p.cache.Find(id)
	if !ok {
		return "", p.fail("Sending reminder", fmt.Errorf("%w: %s", ErrUnknownCustomer, id))
	}
	link, err := p.template.Dispatch(ctx, p.opener, reminder.Request{
		Phone:    rec.PhoneNumber,
		Balance:  rec.Balance,
		Channel:  channel,
		Platform: p.platform,
	})
	if err != nil {
		return "", p.fail("Sending reminder", err)
	}
	p.log.Info().Str("id", id).Str("channel", string(channel)).Msg("reminder opened")
	return link, nil
}

// MyAccount loads and returns the logged-in customer's own record.
func (p *Panel) MyAccount(ctx context.Context) (domain.Customer, error) {
	if err := p.requireSession(); err != nil {
		return domain.Customer{}, p.fail("Loading your account", err)
	}
	if err := p.Load(ctx); err != nil {
		return domain.Customer{}, err
	}
	if id := p.session.CustomerID; id != "" {
		if rec, ok := p.cache.Find(id); ok {
			return rec, nil
		}
	}
	if rec, ok := p.cache.FindByName(p.session.Name); ok {
		return rec, nil
	}
	return domain.Customer{}, p.fail("Loading your account", fmt.Errorf("%w: %s", ErrUnknownCustomer, p.session.Name))
}

// Logout drops the open form, stops in-flight requests and clears the
// session. The panel is unusable afterwards.
func (p *Panel) Logout() {
	p.drafts.Cancel()
	p.tasks.Cancel(tasks.KeyListRefresh)
	p.tasks.Cancel(tasks.KeyCommit)
	p.log.Info().Msg("logged out")
	p.session.Clear()
}

func (p *Panel) requireSession() error {
	if !p.session.Active() {
		return domain.ErrNoSession
	}
	return nil
}

// requireAdmin only hides admin actions from customers; the server enforces
// access.
func (p *Panel) requireAdmin() error {
	if err := p.requireSession(); err != nil {
		return err
	}
	if !p.session.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

func (p *Panel) fail(action string, err error) error {
	n := noticeFor(action, err)
	p.log.Warn().Err(err).Str("action", action).Msg(n.Title)
	p.notify.Notify(n)
	return err
}
