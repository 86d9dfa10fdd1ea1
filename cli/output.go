package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/stevemurr/habit-store/habit"
)

// Exit codes for CLI commands.
const (
	ExitSuccess = 0 // Successful execution
	ExitFailure = 1 // Store unavailable, invalid stored data, missing habit
	ExitUsage   = 2 // Bad flags, arguments or configuration
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitUsage)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// formatter writes command results as a text table or as indented JSON.
type formatter struct {
	format string
	out    io.Writer
}

func (f *formatter) json(v any) error {
	if err := json.MarshalWrite(f.out, v, json.Deterministic(true), jsontext.WithIndent("  ")); err != nil {
		return err
	}
	_, err := io.WriteString(f.out, "\n")
	return err
}

func (f *formatter) habits(habits []habit.Habit) error {
	if f.format == "json" {
		return f.json(habits)
	}
	tw := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED")
	for _, h := range habits {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", h.ID, h.Name, h.CreatedAt)
	}
	return tw.Flush()
}

func (f *formatter) habit(h habit.Habit) error {
	if f.format == "json" {
		return f.json(h)
	}
	return f.habits([]habit.Habit{h})
}

func (f *formatter) keys(keys []string) error {
	if f.format == "json" {
		return f.json(keys)
	}
	for _, k := range keys {
		if _, err := fmt.Fprintln(f.out, k); err != nil {
			return err
		}
	}
	return nil
}
