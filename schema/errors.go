package schema

import (
	"errors"
	"strings"
)

// Violation is a single mismatch between a value and its schema.
type Violation struct {
	Path    string // "$" for the root, "$.field", "$[2]"
	Message string
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// ValidationError is returned when a value was read successfully but does
// not match its schema. It carries every violation found, not just the first.
type ValidationError struct {
	Violations []Violation
}

// Error renders one violation per line.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid value"
	}
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return strings.Join(lines, "\n")
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var ve *ValidationError
	return errors.As(err, &ve)
}
