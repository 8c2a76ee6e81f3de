// Package orchestrator executes one task across a set of registered agents
// under a selectable strategy (hierarchical, parallel, sequential,
// collaborative), bounded by a shared parallelism semaphore and per-call
// retries. Execute never returns a Go error: every failure mode is recorded
// as data in the returned Result so callers can assert on outcomes directly.
package orchestrator
