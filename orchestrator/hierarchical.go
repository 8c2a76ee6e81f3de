package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentswarm/core"
)

// hierarchical asks the planner to decompose the task into assignments, then
// executes them in list order: consecutive dependency-free assignments form
// a batch that runs concurrently, an assignment with dependencies waits for
// all earlier work. Failed assignments are recorded and the run continues;
// synthesis combines whatever succeeded.
func (r *run) hierarchical(ctx context.Context, task string, agents []core.Agent) (string, error) {
	assignments, err := r.o.planner.Plan(ctx, task, agents)
	if err != nil {
		return "", fmt.Errorf("planning failed: %w", err)
	}
	if len(assignments) == 0 {
		return "", fmt.Errorf("planner produced no assignments")
	}

	byName := make(map[string]core.Agent, len(agents))
	for _, a := range agents {
		byName[a.Name()] = a
	}

	for i := 0; i < len(assignments); {
		// batch = maximal run of consecutive dependency-free assignments;
		// a dependent assignment runs alone after all earlier work finished.
		j := i
		for j < len(assignments) && len(assignments[j].DependsOn) == 0 {
			j++
		}
		if j == i {
			j = i + 1
		}

		batch := assignments[i:j]
		results := make([]AgentResult, len(batch))

		var wg sync.WaitGroup
		for k, assignment := range batch {
			agent, ok := byName[assignment.Agent]
			if !ok {
				results[k] = AgentResult{
					Agent: assignment.Agent,
					Task:  assignment.Task,
					Err:   fmt.Sprintf("assignment references unknown agent %q", assignment.Agent),
				}
				continue
			}

			wg.Add(1)
			go func(k int, agent core.Agent, subTask string) {
				defer wg.Done()
				results[k] = r.invoke(ctx, agent, subTask)
			}(k, agent, assignment.Task)
		}
		wg.Wait()

		for _, ar := range results {
			r.record(ctx, ar)
		}

		i = j
	}

	return r.synthesize(ctx, task)
}
