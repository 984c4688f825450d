package purge

import (
	"errors"
	"fmt"
)

// ErrRunActive is returned by Start while a previous run on the same
// controller has not reached a terminal state.
var ErrRunActive = errors.New("a deletion run is already active")

// errCancelled flows up from the batch loop when cancellation is observed.
// It is an outcome marker, never surfaced to callers as an error.
var errCancelled = errors.New("run cancelled")

// ValidationError means a precondition failed before the run started. No log
// entry is created and the controller state is unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// APIError wraps a fetch or delete failure from the message store. One
// target's API failure aborts the whole run.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// RunawayError means a target's pagination never converged and the loop hit
// its iteration cap. Distinguished from APIError so a misbehaving cursor is
// diagnosable.
type RunawayError struct {
	Sender     string
	Iterations int
}

func (e *RunawayError) Error() string {
	return fmt.Sprintf("target %s exceeded %d delete iterations", e.Sender, e.Iterations)
}
