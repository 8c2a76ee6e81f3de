package memory

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is the process-local reference Store. Entries live in a map
// guarded by a mutex; expiry is checked lazily on access and expired entries
// are purged as they are encountered. Entries are copied on the way out so
// callers cannot mutate internal state.
//
// Suitable for tests, examples and single-process deployments; use the redis
// sub-package when entries must survive a process restart.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry

	now func() time.Time // overridable for tests
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Set implements Store with last-write-wins semantics.
func (s *InMemoryStore) Set(_ context.Context, key string, value any, owner string, optFns ...func(*SetOptions)) error {
	var opts SetOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	e := Entry{
		Key:       key,
		Value:     value,
		Owner:     owner,
		Tags:      copyTags(opts.Tags),
		CreatedAt: now,
	}
	if opts.TTL > 0 {
		e.ExpiresAt = now.Add(opts.TTL)
	}
	s.entries[key] = e

	return nil
}

// Get implements Store. Expired entries are purged and reported as absent.
func (s *InMemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Expired(s.now()) {
		delete(s.entries, key)
		return Entry{}, ErrNotFound
	}

	return copyEntry(e), nil
}

// Search implements Store with a linear scan, purging expired entries as
// encountered.
func (s *InMemoryStore) Search(_ context.Context, query Query) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	results := make([]Entry, 0)
	for key, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, key)
			continue
		}
		if query.Matches(e) {
			results = append(results, copyEntry(e))
		}
	}

	return results, nil
}

// Delete implements Store; removing an absent key is a no-op.
func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of stored entries including not-yet-purged expired
// ones. Observability aid.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func copyEntry(e Entry) Entry {
	e.Tags = copyTags(e.Tags)
	return e
}

func copyTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	cp := make([]string, len(tags))
	copy(cp, tags)
	return cp
}
