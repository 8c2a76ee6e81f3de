// Package testutil contains helper agents and instrumentation used across
// tests to reduce boilerplate when driving the orchestrator and the bus.
// These helpers are intentionally minimal and avoid adding third-party
// dependencies. They are not intended for production usage.
package testutil
