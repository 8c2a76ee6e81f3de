package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/model"
)

// Assignment is one planned unit of work: a named agent and the sub-task it
// should perform. DependsOn lists agent names whose assignments must complete
// first; assignments without dependencies may run concurrently.
type Assignment struct {
	Agent     string   `json:"agent"`
	Task      string   `json:"task"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// Planner decomposes a task into ordered assignments for the hierarchical
// strategy.
type Planner interface {
	Plan(ctx context.Context, task string, agents []core.Agent) ([]Assignment, error)
}

// FanOutPlanner assigns the unmodified task to every agent with no
// dependencies. It is the deterministic default used when no manager model
// is configured.
type FanOutPlanner struct{}

var _ Planner = (*FanOutPlanner)(nil)

// Plan implements Planner.
func (FanOutPlanner) Plan(_ context.Context, task string, agents []core.Agent) ([]Assignment, error) {
	assignments := make([]Assignment, 0, len(agents))
	for _, a := range agents {
		assignments = append(assignments, Assignment{Agent: a.Name(), Task: task})
	}
	return assignments, nil
}

const plannerInstructions = `You are a planning manager for a team of agents.
Decompose the task into assignments and answer with ONLY a JSON array:
[{"agent": "<name>", "task": "<sub-task>", "depends_on": ["<name>", ...]}]
Use only the listed agent names. Order assignments so dependencies come first.`

// ModelPlanner asks a manager model to decompose the task. The model must
// answer with a JSON array of assignments referencing known agent names.
type ModelPlanner struct {
	model model.Model
}

var _ Planner = (*ModelPlanner)(nil)

// NewModelPlanner constructs a planner backed by the given model.
func NewModelPlanner(m model.Model) *ModelPlanner {
	return &ModelPlanner{model: m}
}

// Plan implements Planner.
func (p *ModelPlanner) Plan(ctx context.Context, task string, agents []core.Agent) ([]Assignment, error) {
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name())
	}

	resp, err := p.model.Complete(ctx, model.Request{
		Instructions: plannerInstructions,
		Prompt:       fmt.Sprintf("Agents: %s\n\nTask: %s", strings.Join(names, ", "), task),
	})
	if err != nil {
		return nil, fmt.Errorf("planner model call failed: %w", err)
	}

	assignments, err := parseAssignments(resp.Text)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	for _, a := range assignments {
		if !known[a.Agent] {
			return nil, fmt.Errorf("planner assigned work to unknown agent %q", a.Agent)
		}
	}

	return assignments, nil
}

// parseAssignments extracts the JSON array from the model's answer,
// tolerating surrounding prose or markdown fences.
func parseAssignments(text string) ([]Assignment, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("planner answer contains no JSON array: %q", text)
	}

	var assignments []Assignment
	if err := json.Unmarshal([]byte(text[start:end+1]), &assignments); err != nil {
		return nil, fmt.Errorf("failed to parse planner answer: %w", err)
	}

	if len(assignments) == 0 {
		return nil, fmt.Errorf("planner produced no assignments")
	}

	return assignments, nil
}
