package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentswarm/core"
)

// collaborative gathers an independent contribution from every agent, then
// iterates Rounds refinement passes in which each agent sees its own prior
// contribution plus all peers' and refines it. A failed refinement keeps the
// agent's prior contribution; an agent that never produced an initial
// contribution sits the rounds out. Synthesis combines the final
// contributions.
func (r *run) collaborative(ctx context.Context, task string, agents []core.Agent) (string, error) {
	finals := make([]AgentResult, len(agents))
	contributions := make(map[string]string, len(agents))

	// initial independent round
	var wg sync.WaitGroup
	for i, agent := range agents {
		wg.Add(1)
		go func(i int, agent core.Agent) {
			defer wg.Done()
			finals[i] = r.invoke(ctx, agent, task)
		}(i, agent)
	}
	wg.Wait()

	for _, ar := range finals {
		if !ar.Failed() {
			contributions[ar.Agent] = ar.Response
		}
	}

	// refinement rounds over the surviving contributors
	for round := 1; round <= r.cfg.Rounds; round++ {
		if len(contributions) == 0 || ctx.Err() != nil {
			break
		}

		snapshot := make(map[string]string, len(contributions))
		for name, c := range contributions {
			snapshot[name] = c
		}

		refined := make([]AgentResult, len(agents))
		for i, agent := range agents {
			if _, ok := snapshot[agent.Name()]; !ok {
				continue
			}

			wg.Add(1)
			go func(i int, agent core.Agent) {
				defer wg.Done()
				refined[i] = r.invoke(ctx, agent, refinementPrompt(task, agent.Name(), snapshot))
			}(i, agent)
		}
		wg.Wait()

		for i := range agents {
			ar := refined[i]
			if ar.Agent == "" {
				continue // sat this round out
			}

			finals[i].Attempts += ar.Attempts
			finals[i].Duration += ar.Duration

			if ar.Failed() {
				// keep the prior contribution
				r.addError(fmt.Sprintf("round %d: %s", round, ar.Err))
				continue
			}

			contributions[ar.Agent] = ar.Response
			finals[i].Response = ar.Response
		}
	}

	for _, ar := range finals {
		r.record(ctx, ar)
	}

	return r.synthesize(ctx, task)
}

// refinementPrompt shows an agent its own prior contribution and its peers'
// work, in stable name order.
func refinementPrompt(task, self string, contributions map[string]string) string {
	names := make([]string, 0, len(contributions))
	for name := range contributions {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n\nYour previous contribution:\n%s\n", task, contributions[self])

	for _, name := range names {
		if name == self {
			continue
		}
		fmt.Fprintf(&sb, "\nContribution from %s:\n%s\n", name, contributions[name])
	}

	sb.WriteString("\nRefine your contribution taking the peer contributions into account.")

	return sb.String()
}
