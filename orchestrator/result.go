package orchestrator

import "time"

// State tracks a run through its lifecycle: Pending -> Running ->
// {Succeeded, Failed}. Cancellation and overall timeout terminate in Failed.
type State string

const (
	// StatePending is the initial state before any work is dispatched.
	StatePending State = "pending"
	// StateRunning is set while strategy work is in flight.
	StateRunning State = "running"
	// StateSucceeded is terminal: synthesis produced a usable output.
	StateSucceeded State = "succeeded"
	// StateFailed is terminal: the run could not produce a usable output.
	StateFailed State = "failed"
)

// AgentResult is the outcome of one agent invocation within a run.
type AgentResult struct {
	Agent    string        `json:"agent"`
	Task     string        `json:"task"`
	Response string        `json:"response,omitempty"`
	Err      string        `json:"error,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the invocation exhausted its retries without a
// response.
func (r AgentResult) Failed() bool { return r.Err != "" }

// Result is the complete outcome of one Execute call. It is populated even
// on failure: Success and Errors carry every failure mode as data.
type Result struct {
	Success  bool           `json:"success"`
	State    State          `json:"state"`
	Strategy Strategy       `json:"strategy"`
	Output   string         `json:"output,omitempty"`
	Results  []AgentResult  `json:"results"`
	Errors   []string       `json:"errors,omitempty"`
	Duration time.Duration  `json:"duration"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// successes filters the results down to the ones that produced a response.
func successes(results []AgentResult) []AgentResult {
	out := make([]AgentResult, 0, len(results))
	for _, r := range results {
		if !r.Failed() {
			out = append(out, r)
		}
	}
	return out
}
