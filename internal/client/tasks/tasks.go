// Package tasks tracks in-flight operations by purpose. Starting a task under a
// key cancels whatever was running under that key, so only the newest call's
// result is ever applied.
package tasks

import (
	"context"
	"sync"
)

// Well-known keys.
const (
	KeyListRefresh = "list-refresh"
	KeyCommit      = "draft-commit"
)

// Token identifies one started task.
type Token struct {
	key string
	seq uint64
}

type task struct {
	seq    uint64
	cancel context.CancelFunc
}

// Tracker is safe for concurrent use. The zero value is ready to use.
type Tracker struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]task
}

// Start derives a context for a new task under key and cancels the task it
// supersedes, if any. Callers must call Finish with the returned token.
func (t *Tracker) Start(parent context.Context, key string) (context.Context, Token) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight == nil {
		t.inflight = make(map[string]task)
	}
	if prev, ok := t.inflight[key]; ok {
		prev.cancel()
	}
	t.seq++
	t.inflight[key] = task{seq: t.seq, cancel: cancel}
	return ctx, Token{key: key, seq: t.seq}
}

// TryStart is Start for tasks that must not be superseded. It refuses, and
// returns ok false, while another task is running under key.
func (t *Tracker) TryStart(parent context.Context, key string) (ctx context.Context, tok Token, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.inflight[key]; busy {
		return nil, Token{}, false
	}
	if t.inflight == nil {
		t.inflight = make(map[string]task)
	}
	ctx, cancel := context.WithCancel(parent)
	t.seq++
	t.inflight[key] = task{seq: t.seq, cancel: cancel}
	return ctx, Token{key: key, seq: t.seq}, true
}

// Current reports whether tok is still the newest task under its key.
func (t *Tracker) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.inflight[tok.key]
	return ok && cur.seq == tok.seq
}

// Finish releases the task's context and reports whether it is still the
// newest task under its key. A false result means its outcome must be
// discarded.
func (t *Tracker) Finish(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.inflight[tok.key]
	if !ok || cur.seq != tok.seq {
		return false
	}
	cur.cancel()
	delete(t.inflight, tok.key)
	return true
}

// Cancel aborts the task currently running under key.
func (t *Tracker) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.inflight[key]; ok {
		cur.cancel()
		delete(t.inflight, key)
	}
}

// Running reports whether a task is in flight under key.
func (t *Tracker) Running(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.inflight[key]
	return ok
}
