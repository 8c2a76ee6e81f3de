package orchestrator

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentswarm/core"
)

// sequential runs the agents as a pipeline: each agent's output becomes the
// next agent's input verbatim. The first stage failure aborts the remaining
// stages; there is no partial success. The final stage's output is the run's
// output, with no synthesis step.
func (r *run) sequential(ctx context.Context, task string, agents []core.Agent) (string, error) {
	input := task

	for _, agent := range agents {
		ar := r.invoke(ctx, agent, input)
		r.record(ctx, ar)

		if ar.Failed() {
			return "", fmt.Errorf("pipeline aborted at stage %s", ar.Agent)
		}

		input = ar.Response
	}

	return input, nil
}
