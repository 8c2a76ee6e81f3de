// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer SwarmLogger with contextual
// helpers (run, component) and domain specific logging helpers for agent
// calls, bus deliveries and orchestrator runs.
package logging
