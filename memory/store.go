package memory

import (
	"context"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no live entry exists for the given key.
	// Expired entries are treated as absent.
	ErrNotFound = fmt.Errorf("memory entry not found")
)

// Entry is a single stored value together with its bookkeeping. The store
// exclusively owns entries; callers receive copies and hold no reference
// semantics beyond the returned value.
type Entry struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	Owner     string    `json:"owner"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"` // zero means no expiry
}

// Expired reports whether the entry's TTL has elapsed at the given time.
func (e Entry) Expired(now time.Time) bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(e.ExpiresAt)
}

// HasTag reports whether the entry carries the given tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SetOptions customize a Set call.
type SetOptions struct {
	Tags []string
	TTL  time.Duration
}

// WithTags attaches discovery tags to the entry.
func WithTags(tags ...string) func(*SetOptions) {
	return func(o *SetOptions) { o.Tags = append(o.Tags, tags...) }
}

// WithTTL sets a time-to-live after which the entry is treated as absent.
func WithTTL(d time.Duration) func(*SetOptions) {
	return func(o *SetOptions) { o.TTL = d }
}

// Query filters a Search call. An entry matches when it carries any of the
// queried tags (if Tags is non-empty) and belongs to Owner (if set).
type Query struct {
	Tags  []string
	Owner string
}

// Matches reports whether the entry satisfies the query.
func (q Query) Matches(e Entry) bool {
	if q.Owner != "" && e.Owner != q.Owner {
		return false
	}
	if len(q.Tags) == 0 {
		return true
	}
	for _, tag := range q.Tags {
		if e.HasTag(tag) {
			return true
		}
	}
	return false
}

// Store defines key/value persistence with expiry and tag-based discovery.
// Writes are last-write-wins with no cross-key transactions; callers needing
// atomic multi-key updates must serialize externally (in AgentSwarm the
// orchestrator is the sole component performing multi-step sequences on
// behalf of a run).
type Store interface {
	// Set upserts an entry, replacing any prior entry at that key.
	Set(ctx context.Context, key string, value any, owner string, optFns ...func(*SetOptions)) error

	// Get returns the entry unless it is expired, in which case it is
	// removed and ErrNotFound is returned.
	Get(ctx context.Context, key string) (Entry, error)

	// Search returns live entries matching the query, purging expired
	// entries as they are encountered. Order is unspecified.
	Search(ctx context.Context, query Query) ([]Entry, error)

	// Delete removes the entry if present; no-op otherwise.
	Delete(ctx context.Context, key string) error
}
