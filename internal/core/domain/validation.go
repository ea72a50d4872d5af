package domain

import (
	"sort"
	"strings"
)

// ValidationError reports field-level input problems detected locally. It is
// never the result of a network call.
type ValidationError struct {
	// Fields maps a field name (name, balance, phone_number, ...) to a
	// message suitable for showing next to that field.
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for one field, or "".
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}
