// Package redis provides a Redis-backed memory.Store for swarms whose shared
// memory must survive a process restart or be visible across processes. All
// keys are namespaced with the swarm instance name so several swarms can
// share one Redis deployment.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentswarm/memory"
)

// Store implements memory.Store on top of Redis. Entries are stored as JSON
// strings with a physical Redis TTL; tag and owner indexes are Redis sets
// cleaned lazily during Search. Values round-trip through JSON, so numeric
// values come back as float64 and structs as maps.
type Store struct {
	rdb       *redis.Client
	namespace string
	now       func() time.Time
}

var _ memory.Store = (*Store)(nil)

// New creates a Redis-backed store. All keys and index sets are namespaced
// with the given instance name (must not be empty).
func New(redisOpts *redis.Options, namespace string) (*Store, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &Store{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
		now:       time.Now,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error { return s.rdb.Close() }

// Ping verifies Redis connectivity. Useful for health checks.
func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *Store) entryKey(key string) string { return fmt.Sprintf("%s:entry:%s", s.namespace, key) }
func (s *Store) keysKey() string            { return fmt.Sprintf("%s:keys", s.namespace) }
func (s *Store) tagKey(tag string) string   { return fmt.Sprintf("%s:tag:%s", s.namespace, tag) }
func (s *Store) ownerKey(o string) string   { return fmt.Sprintf("%s:owner:%s", s.namespace, o) }

// Set implements memory.Store with last-write-wins semantics. Index set
// members left behind by an overwrite are filtered out on read since every
// fetched entry is re-checked against the query.
func (s *Store) Set(ctx context.Context, key string, value any, owner string, optFns ...func(*memory.SetOptions)) error {
	var opts memory.SetOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	now := s.now().UTC()
	e := memory.Entry{
		Key:       key,
		Value:     value,
		Owner:     owner,
		Tags:      opts.Tags,
		CreatedAt: now,
	}
	if opts.TTL > 0 {
		e.ExpiresAt = now.Add(opts.TTL)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to serialize entry: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.entryKey(key), data, opts.TTL)
	pipe.SAdd(ctx, s.keysKey(), key)
	if owner != "" {
		pipe.SAdd(ctx, s.ownerKey(owner), key)
	}
	for _, tag := range opts.Tags {
		pipe.SAdd(ctx, s.tagKey(tag), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write entry to Redis: %w", err)
	}

	return nil
}

// Get implements memory.Store. Redis removes expired keys physically; stale
// index members are pruned here as a side effect.
func (s *Store) Get(ctx context.Context, key string) (memory.Entry, error) {
	data, err := s.rdb.Get(ctx, s.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		s.rdb.SRem(ctx, s.keysKey(), key)
		return memory.Entry{}, memory.ErrNotFound
	}
	if err != nil {
		return memory.Entry{}, fmt.Errorf("failed to read entry from Redis: %w", err)
	}

	var e memory.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return memory.Entry{}, fmt.Errorf("failed to deserialize entry: %w", err)
	}
	if e.Expired(s.now()) {
		s.rdb.Del(ctx, s.entryKey(key))
		s.rdb.SRem(ctx, s.keysKey(), key)
		return memory.Entry{}, memory.ErrNotFound
	}

	return e, nil
}

// Search implements memory.Store. The candidate key set comes from the tag
// indexes (union) or the owner index; without filters the full key set is
// scanned. Every candidate is re-checked against the query after fetch so
// stale index members never leak into results.
func (s *Store) Search(ctx context.Context, query memory.Query) ([]memory.Entry, error) {
	keys, err := s.candidateKeys(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]memory.Entry, 0, len(keys))
	for _, key := range keys {
		e, err := s.Get(ctx, key)
		if errors.Is(err, memory.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if query.Matches(e) {
			results = append(results, e)
		}
	}

	return results, nil
}

func (s *Store) candidateKeys(ctx context.Context, query memory.Query) ([]string, error) {
	switch {
	case len(query.Tags) > 0:
		tagKeys := make([]string, len(query.Tags))
		for i, tag := range query.Tags {
			tagKeys[i] = s.tagKey(tag)
		}
		keys, err := s.rdb.SUnion(ctx, tagKeys...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read tag index: %w", err)
		}
		return keys, nil
	case query.Owner != "":
		keys, err := s.rdb.SMembers(ctx, s.ownerKey(query.Owner)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read owner index: %w", err)
		}
		return keys, nil
	default:
		keys, err := s.rdb.SMembers(ctx, s.keysKey()).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read key index: %w", err)
		}
		return keys, nil
	}
}

// Delete implements memory.Store; removing an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	e, err := s.Get(ctx, key)
	if errors.Is(err, memory.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.entryKey(key))
	pipe.SRem(ctx, s.keysKey(), key)
	if e.Owner != "" {
		pipe.SRem(ctx, s.ownerKey(e.Owner), key)
	}
	for _, tag := range e.Tags {
		pipe.SRem(ctx, s.tagKey(tag), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete entry from Redis: %w", err)
	}

	return nil
}
