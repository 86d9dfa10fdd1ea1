package store

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("store closed")

// Error wraps any failure raised by a Backend: I/O faults, quota or
// serialization problems, closed stores, panics, and contexts that were
// already done when the call was made.
type Error struct {
	Backend string // e.g. "memory", "json", "sqlite"
	Op      string // "get", "set", "keys"
	Key     string // empty for key-less operations
	Cause   error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Backend, e.Op, e.Key, e.Cause)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Cause }

// IsStoreError reports whether err is (or wraps) a *Error.
func IsStoreError(err error) bool {
	if err == nil {
		return false
	}
	var se *Error
	return errors.As(err, &se)
}
