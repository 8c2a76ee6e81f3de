package orchestrator

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a run aborted by context cancellation or the overall
// run timeout. Partial results are preserved in the returned Result.
var ErrCancelled = errors.New("run cancelled")

// CapabilityError wraps a failed agent invocation after retries are
// exhausted.
type CapabilityError struct {
	Agent string
	Err   error
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.Agent, e.Err)
}

// Unwrap returns the underlying error.
func (e *CapabilityError) Unwrap() error { return e.Err }

// SynthesisError wraps a failed synthesis step. It fails the whole run even
// when every sub-task succeeded, since un-synthesized fragments are not a
// usable result.
type SynthesisError struct {
	Err error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error { return e.Err }
