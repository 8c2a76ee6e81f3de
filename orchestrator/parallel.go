package orchestrator

import (
	"context"
	"sync"

	"github.com/hupe1980/agentswarm/core"
)

// parallel sends the same task to every agent concurrently, bounded by the
// shared semaphore. A sub-task failure is recorded but never aborts siblings;
// the run succeeds when at least one agent produced a response and synthesis
// over the successful responses completes.
func (r *run) parallel(ctx context.Context, task string, agents []core.Agent) (string, error) {
	results := make([]AgentResult, len(agents))

	var wg sync.WaitGroup
	for i, agent := range agents {
		wg.Add(1)
		go func(i int, agent core.Agent) {
			defer wg.Done()
			results[i] = r.invoke(ctx, agent, task)
		}(i, agent)
	}
	wg.Wait()

	// recorded in registration order so reports are deterministic
	for _, ar := range results {
		r.record(ctx, ar)
	}

	return r.synthesize(ctx, task)
}
