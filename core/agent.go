package core

import "context"

// Agent is the external capability that AgentSwarm drives. Given a task
// description it produces a textual response. Implementations wrap whatever
// actually does the work (a model call, a remote worker, a plain function);
// the orchestrator and the bus depend only on this interface, never on
// concrete agent types.
//
// Implementations must:
//   - Respect context cancellation and deadlines
//   - Be safe for concurrent invocation (the orchestrator may call Respond
//     from multiple goroutines, bounded by its parallelism limit)
//   - Return an error rather than blocking indefinitely
type Agent interface {
	// Name returns the stable identity used for bus addressing, memory
	// ownership and execution reports.
	Name() string

	// Respond processes the task and returns the textual result.
	Respond(ctx context.Context, task string) (string, error)
}

// ToolHandler is optionally implemented by agents whose responses can
// request structured tool calls. The contract is intentionally generic
// (a map in, a map out) so any concrete provider's function-calling format
// can be adapted at the boundary. The result of a tool call is fed back
// into the same agent's next turn.
type ToolHandler interface {
	HandleTool(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

// AgentInfo carries identifying details about an agent used in reports and
// bus history. Name is the external identifier; Type categorizes the
// implementation (e.g. "model", "func", "orchestrator").
type AgentInfo struct{ Name, Type string }
