package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentswarm/model"
)

// Synthesizer combines the original task and the successful per-agent results
// into the run's final output.
type Synthesizer interface {
	Synthesize(ctx context.Context, task string, results []AgentResult) (string, error)
}

// ConcatSynthesizer deterministically joins the responses, labeled by agent.
// It is the default used when no synthesis model is configured.
type ConcatSynthesizer struct{}

var _ Synthesizer = (*ConcatSynthesizer)(nil)

// Synthesize implements Synthesizer.
func (ConcatSynthesizer) Synthesize(_ context.Context, _ string, results []AgentResult) (string, error) {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%s]\n%s", r.Agent, r.Response)
	}
	return sb.String(), nil
}

const synthesizerInstructions = `You combine the contributions of several agents
into one coherent final answer for the original task. Do not mention the
agents or the combination process in the answer.`

// ModelSynthesizer produces the final output with a model call over the task
// and the per-agent responses.
type ModelSynthesizer struct {
	model model.Model
}

var _ Synthesizer = (*ModelSynthesizer)(nil)

// NewModelSynthesizer constructs a synthesizer backed by the given model.
func NewModelSynthesizer(m model.Model) *ModelSynthesizer {
	return &ModelSynthesizer{model: m}
}

// Synthesize implements Synthesizer.
func (s *ModelSynthesizer) Synthesize(ctx context.Context, task string, results []AgentResult) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n\nContributions:\n", task)
	for _, r := range results {
		fmt.Fprintf(&sb, "\n[%s]\n%s\n", r.Agent, r.Response)
	}

	resp, err := s.model.Complete(ctx, model.Request{
		Instructions: synthesizerInstructions,
		Prompt:       sb.String(),
	})
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}
