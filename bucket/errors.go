package bucket

import (
	"errors"
	"fmt"

	"github.com/grafast-dev/grafast/plan"
)

// ExecutionError wraps a failure raised while running a step, tagging the
// step and layer it occurred in (spec.md §7, "ExecutionError").
type ExecutionError struct {
	StepID  plan.StepID
	LayerID plan.LayerID
	Cause   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution: step %d (layer %d): %v", e.StepID, e.LayerID, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// SafeError marks an error as safe to surface verbatim in a GraphQL
// response's errors array, as opposed to an internal error that should be
// redacted to a generic message before reaching the client (spec.md §7,
// "SafeError").
type SafeError struct {
	Message string
}

func (e *SafeError) Error() string { return e.Message }

// NewSafeError wraps message as a SafeError.
func NewSafeError(message string) error { return &SafeError{Message: message} }

// IsSafe reports whether err, or something it wraps, is a SafeError.
func IsSafe(err error) bool {
	var se *SafeError
	return errors.As(err, &se)
}

// CancellationError is returned when execution stops because its context
// was canceled, e.g. a client disconnect mid-operation (spec.md §7,
// "CancellationError").
type CancellationError struct {
	Cause error
}

func (e *CancellationError) Error() string { return fmt.Sprintf("execution cancelled: %v", e.Cause) }
func (e *CancellationError) Unwrap() error { return e.Cause }
