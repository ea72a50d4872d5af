// Package listcache holds the last successfully fetched customer list.
//
// The list is replaced wholesale by each successful Refresh and never patched
// locally. A failed Refresh keeps the previous records available and flips the
// status to StatusError.
package listcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kathulis/tabkeeper/internal/client/tasks"
	"github.com/kathulis/tabkeeper/internal/core/domain"
)

// ErrSuperseded is returned by a Refresh whose result was discarded because a
// newer Refresh started before it finished.
var ErrSuperseded = errors.New("refresh superseded by a newer refresh")

// Status is the cache's load state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Lister is the part of the record service the cache needs.
type Lister interface {
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
}

// Cache is safe for concurrent use.
type Cache struct {
	source Lister
	log    zerolog.Logger
	tasks  *tasks.Tracker

	mu      sync.RWMutex
	records []domain.Customer
	status  Status
	lastErr error
}

// New returns an empty, idle cache backed by source. tracker may be shared
// with other components; nil gets a private one.
func New(source Lister, tracker *tasks.Tracker, log zerolog.Logger) *Cache {
	if tracker == nil {
		tracker = &tasks.Tracker{}
	}
	return &Cache{
		source: source,
		tasks:  tracker,
		log:    log.With().Str("component", "listcache").Logger(),
	}
}

// Refresh fetches the list and replaces the cached records on success. A
// newer Refresh cancels this one; the older call then returns ErrSuperseded
// and leaves state alone.
func (c *Cache) Refresh(ctx context.Context) error {
	ctx, tok := c.tasks.Start(ctx, tasks.KeyListRefresh)

	c.mu.Lock()
	if c.tasks.Current(tok) {
		c.status = StatusLoading
	}
	c.mu.Unlock()

	records, err := c.source.ListCustomers(ctx)

	if !c.tasks.Finish(tok) {
		c.mu.Lock()
		// Cancelled with no successor: nobody else will clear loading.
		if c.status == StatusLoading && !c.tasks.Running(tasks.KeyListRefresh) {
			c.status = StatusIdle
		}
		c.mu.Unlock()
		c.log.Debug().Msg("stale refresh discarded")
		return ErrSuperseded
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.status = StatusError
		c.lastErr = err
		c.log.Warn().Err(err).Int("kept", len(c.records)).Msg("refresh failed, keeping previous records")
		return fmt.Errorf("refresh customers: %w", err)
	}
	c.records = records
	c.status = StatusIdle
	c.lastErr = nil
	c.log.Debug().Int("records", len(records)).Msg("refreshed")
	return nil
}

// Records returns a copy of the cached records in server order.
func (c *Cache) Records() []domain.Customer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Customer(nil), c.records...)
}

// Status returns the current load state.
func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Err returns the error of the last failed refresh while Status is
// StatusError, otherwise nil.
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Find returns the cached record with the given id.
func (c *Cache) Find(id string) (domain.Customer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Customer{}, false
}

// FindByName returns the first cached record named name.
func (c *Cache) FindByName(name string) (domain.Customer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.Name == name {
			return r, true
		}
	}
	return domain.Customer{}, false
}
