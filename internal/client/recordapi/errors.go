package recordapi

import (
	"errors"
	"fmt"
)

// Kind classifies a failed remote call.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnreachable
	KindTimeout
	KindNotFound
	KindServerRejected
)

var (
	ErrUnknown        = errors.New("unknown service error")
	ErrUnreachable    = errors.New("service unreachable")
	ErrTimeout        = errors.New("service timed out")
	ErrNotFound       = errors.New("record not found")
	ErrServerRejected = errors.New("request rejected by server")
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindServerRejected:
		return "server_rejected"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnreachable:
		return ErrUnreachable
	case KindTimeout:
		return ErrTimeout
	case KindNotFound:
		return ErrNotFound
	case KindServerRejected:
		return ErrServerRejected
	default:
		return ErrUnknown
	}
}

// ServiceError is the only error type returned for a failed remote call.
// Match the kind with errors.Is(err, recordapi.ErrNotFound) and friends.
type ServiceError struct {
	Kind Kind
	// Op is the client operation, e.g. "list customers".
	Op string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	// Message is the server's error text, when it sent one.
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.sentinel().Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the kind of a ServiceError anywhere in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
