package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestTimeout is returned when a request receives no matching
	// Respond within its deadline. The pending waiter is discarded.
	ErrRequestTimeout = errors.New("request timed out")
)

// DeliveryError wraps a handler failure during direct delivery. It is
// propagated to the publisher of that direct message only; broadcast handler
// failures are isolated and recorded in history instead.
type DeliveryError struct {
	Agent     string
	MessageID string
	Err       error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to agent %s failed for message %s: %v", e.Agent, e.MessageID, e.Err)
}

// Unwrap returns the underlying handler error.
func (e *DeliveryError) Unwrap() error { return e.Err }
