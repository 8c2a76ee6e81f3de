// Package core defines the shared contracts of AgentSwarm: the Agent
// capability interface consumed by the orchestrator and the bus, the Message
// value object exchanged between agents, and the identifier helpers used
// across packages.
//
// Keeping these contracts in a single leaf package lets bus, memory and
// orchestrator depend on the same types without introducing cycles; concrete
// implementations live in their own packages and are selected at wiring time.
package core
