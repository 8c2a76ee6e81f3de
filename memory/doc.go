// Package memory provides the shared working memory of a swarm: a key/value
// Store with per-entry ownership, tags and optional expiry, plus the
// SharedMemory conventions (artifacts, notes, decisions) layered on top of
// the Store primitives.
//
// The Store interface is defined here alongside the in-memory reference
// implementation; durable backends (like the Redis store in the redis
// sub-package) plug in at wiring time without touching orchestration logic.
package memory
