package core

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the delivery semantics of a Message.
type Kind string

const (
	// KindDirect is a point-to-point message delivered only to the named receiver.
	KindDirect Kind = "direct"
	// KindBroadcast is delivered to every subscriber except the sender.
	KindBroadcast Kind = "broadcast"
	// KindRequest is delivered like a direct message while the sender blocks
	// for a correlated response.
	KindRequest Kind = "request"
	// KindResponse answers a request; its CorrelationID equals the request's ID.
	KindResponse Kind = "response"
	// KindEvent is a fire-and-forget broadcast.
	KindEvent Kind = "event"
)

// Priority orders handler invocation when multiple subscriptions qualify for
// the same message. Higher values fire first.
type Priority int

const (
	// PriorityLow is the lowest delivery priority.
	PriorityLow Priority = iota
	// PriorityNormal is the default delivery priority.
	PriorityNormal
	// PriorityHigh fires before normal and low priority handlers.
	PriorityHigh
	// PriorityUrgent fires before all other handlers.
	PriorityUrgent
)

// String returns the human readable name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// Message is the unit of inter-agent communication. After construction it
// should be treated as immutable: the bus owns it for the duration of
// delivery and retains only a bounded history afterwards. It captures:
//   - Identity and correlation (ID, CorrelationID)
//   - Addressing (Sender, Receiver; Receiver is empty for broadcasts)
//   - Delivery semantics (Kind, Priority, optional TTL)
//   - An opaque payload plus free-form metadata
type Message struct {
	ID            string            `json:"id"`
	Sender        string            `json:"sender"`
	Receiver      string            `json:"receiver,omitempty"`
	Payload       any               `json:"payload"`
	Kind          Kind              `json:"kind"`
	Priority      Priority          `json:"priority"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	TTL           time.Duration     `json:"ttl,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// MessageOption customizes a message at construction time.
type MessageOption func(*Message)

// WithPriority sets the delivery priority.
func WithPriority(p Priority) MessageOption {
	return func(m *Message) { m.Priority = p }
}

// WithTTL sets a time-to-live after which the message is no longer delivered.
func WithTTL(d time.Duration) MessageOption {
	return func(m *Message) { m.TTL = d }
}

// WithMetadata attaches a metadata key/value pair.
func WithMetadata(key, value string) MessageOption {
	return func(m *Message) {
		if m.Metadata == nil {
			m.Metadata = map[string]string{}
		}
		m.Metadata[key] = value
	}
}

// NewMessage constructs a message of the given kind with a fresh ID and UTC
// timestamp. Prefer the kind-specific helpers below for common cases.
func NewMessage(kind Kind, sender, receiver string, payload any, optFns ...MessageOption) Message {
	m := Message{
		ID:        NewID(),
		Sender:    sender,
		Receiver:  receiver,
		Payload:   payload,
		Kind:      kind,
		Priority:  PriorityNormal,
		Timestamp: time.Now().UTC(),
	}

	for _, fn := range optFns {
		fn(&m)
	}

	return m
}

// NewDirect creates a point-to-point message.
func NewDirect(sender, receiver string, payload any, optFns ...MessageOption) Message {
	return NewMessage(KindDirect, sender, receiver, payload, optFns...)
}

// NewBroadcast creates a message delivered to all subscribers except the sender.
func NewBroadcast(sender string, payload any, optFns ...MessageOption) Message {
	return NewMessage(KindBroadcast, sender, "", payload, optFns...)
}

// NewRequest creates a request message whose publisher blocks for a response.
func NewRequest(sender, receiver string, payload any, optFns ...MessageOption) Message {
	return NewMessage(KindRequest, sender, receiver, payload, optFns...)
}

// NewEvent creates a fire-and-forget broadcast message.
func NewEvent(sender string, payload any, optFns ...MessageOption) Message {
	return NewMessage(KindEvent, sender, "", payload, optFns...)
}

// NewResponse creates the response to a request. The response is addressed
// to the request's sender, authored by the request's receiver, and carries
// the request ID as its correlation id.
func NewResponse(request Message, payload any, optFns ...MessageOption) Message {
	m := NewMessage(KindResponse, request.Receiver, request.Sender, payload, optFns...)
	m.CorrelationID = request.ID
	return m
}

// Expired reports whether the message's TTL has elapsed at the given time.
// Messages without a TTL never expire.
func (m Message) Expired(now time.Time) bool {
	if m.TTL <= 0 {
		return false
	}
	return !now.Before(m.Timestamp.Add(m.TTL))
}

// Answers reports whether this message is the response correlated to the
// given request.
func (m Message) Answers(request Message) bool {
	return m.Kind == KindResponse && m.CorrelationID == request.ID
}

// NewID generates a unique identifier for messages, entries and runs.
func NewID() string { return uuid.NewString() }
