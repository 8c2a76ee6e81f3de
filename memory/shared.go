package memory

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Key prefixes and tags used by the SharedMemory conventions.
const (
	artifactPrefix = "artifact:"
	notePrefix     = "note:"
	decisionPrefix = "decision:"

	// TagArtifact marks entries written by ShareArtifact.
	TagArtifact = "artifact"
	// TagNote marks entries written by AddNote.
	TagNote = "note"
	// TagDecision marks entries written by RecordDecision.
	TagDecision = "decision"
)

// Decision is the structured value stored by RecordDecision.
type Decision struct {
	Decision  string `json:"decision"`
	Rationale string `json:"rationale"`
}

// SharedMemory layers named conventions (artifacts, notes, decisions) over a
// Store. It never reaches into store internals, so the backend is swappable
// without touching orchestration logic.
type SharedMemory struct {
	store Store
	now   func() time.Time
}

// NewSharedMemory wraps the given store.
func NewSharedMemory(store Store) *SharedMemory {
	return &SharedMemory{store: store, now: time.Now}
}

// Store exposes the underlying store for raw access.
func (m *SharedMemory) Store() Store { return m.store }

// Remember is a thin alias for Store.Set.
func (m *SharedMemory) Remember(ctx context.Context, key string, value any, owner string, optFns ...func(*SetOptions)) error {
	return m.store.Set(ctx, key, value, owner, optFns...)
}

// Recall is a thin alias for Store.Get.
func (m *SharedMemory) Recall(ctx context.Context, key string) (Entry, error) {
	return m.store.Get(ctx, key)
}

// ShareArtifact stores a named artifact without expiry. Artifacts are global:
// any owner can read them back, and they are intended to outlive a single run.
func (m *SharedMemory) ShareArtifact(ctx context.Context, owner, name string, content any) error {
	return m.store.Set(ctx, artifactPrefix+name, content, owner, WithTags(TagArtifact))
}

// GetArtifact retrieves a previously shared artifact by name.
func (m *SharedMemory) GetArtifact(ctx context.Context, name string) (any, error) {
	e, err := m.store.Get(ctx, artifactPrefix+name)
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

// AddNote appends a free-form note for the owner. The timestamp in the key
// guarantees uniqueness without a counter.
func (m *SharedMemory) AddNote(ctx context.Context, owner string, content any, tags ...string) error {
	key := fmt.Sprintf("%s%s:%s", notePrefix, owner, m.now().UTC().Format(time.RFC3339Nano))
	return m.store.Set(ctx, key, content, owner, WithTags(append([]string{TagNote}, tags...)...))
}

// GetNotes returns the most recent notes, newest first, optionally filtered
// by owner (empty owner matches all) and truncated to limit (<=0 means 10).
func (m *SharedMemory) GetNotes(ctx context.Context, owner string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	entries, err := m.store.Search(ctx, Query{Tags: []string{TagNote}, Owner: owner})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Key > entries[j].Key
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// RecordDecision stores a decision with its rationale.
func (m *SharedMemory) RecordDecision(ctx context.Context, owner, decision, rationale string) error {
	key := decisionPrefix + m.now().UTC().Format(time.RFC3339Nano)
	return m.store.Set(ctx, key, Decision{Decision: decision, Rationale: rationale}, owner, WithTags(TagDecision))
}

// GetDecisions returns all recorded decisions, newest first.
func (m *SharedMemory) GetDecisions(ctx context.Context) ([]Entry, error) {
	entries, err := m.store.Search(ctx, Query{Tags: []string{TagDecision}})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
