package domain

import (
	"errors"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrNoSession = errors.New("no active session")

// Session is the authenticated identity for one run of a client. It is created
// by a successful login, passed explicitly to whatever needs it, and cleared
// on logout. It is never written to disk.
type Session struct {
	Name       string
	Role       Role
	CustomerID string
	Token      string
	StartedAt  time.Time
}

// Active reports whether s holds a live login. Token may be empty when the
// backend does not issue one.
func (s *Session) Active() bool {
	return s != nil && s.Role.Valid()
}

// IsAdmin reports whether the session belongs to the venue admin.
func (s *Session) IsAdmin() bool {
	return s.Active() && s.Role == RoleAdmin
}

// Clear ends the session. The zero value is an inactive session.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	*s = Session{}
}
