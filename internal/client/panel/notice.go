package panel

import (
	"errors"

	"github.com/kathulis/tabkeeper/internal/client/editsession"
	"github.com/kathulis/tabkeeper/internal/client/recordapi"
	"github.com/kathulis/tabkeeper/internal/client/reminder"
	"github.com/kathulis/tabkeeper/internal/core/domain"
)

// Level is how loudly a notice should be shown.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a one-shot, user-visible message.
type Notice struct {
	Level  Level
	Title  string
	Detail string
	// Fields carries per-field messages for validation notices.
	Fields map[string]string
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discard struct{}

func (discard) Notify(Notice) {}

// noticeFor turns a failed action into the notice the user sees.
func noticeFor(action string, err error) Notice {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return Notice{Level: LevelWarn, Title: "Please check the form", Detail: ve.Error(), Fields: ve.Fields}
	}

	n := Notice{Level: LevelError, Title: action + " failed", Detail: err.Error()}
	switch {
	case errors.Is(err, reminder.ErrLinkUnavailable):
		n.Level = LevelWarn
		n.Title = "Messaging app not available"
	case errors.Is(err, editsession.ErrDraftActive):
		n.Level = LevelWarn
		n.Title = "Finish or cancel the open form first"
	case errors.Is(err, editsession.ErrCommitInFlight):
		n.Level = LevelWarn
		n.Title = "Still saving, please wait"
	case errors.Is(err, domain.ErrNoSession):
		n.Title = "Please log in again"
	case errors.Is(err, domain.ErrForbidden):
		n.Title = "Only the admin can do that"
	}

	var se *recordapi.ServiceError
	if errors.As(err, &se) {
		switch se.Kind {
		case recordapi.KindUnreachable:
			n.Title = "Cannot reach the server"
		case recordapi.KindTimeout:
			n.Title = "The server took too long to answer"
		case recordapi.KindNotFound:
			n.Title = "Customer no longer exists"
		case recordapi.KindServerRejected:
			n.Title = action + " was rejected"
		}
		if se.Message != "" {
			n.Detail = se.Message
		}
	}
	return n
}
