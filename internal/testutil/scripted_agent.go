package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Gauge tracks concurrently in-flight calls and remembers the high-water
// mark. Share one gauge across agents to verify parallelism bounds.
type Gauge struct {
	mu      sync.Mutex
	current int
	max     int
}

// Enter increments the in-flight count.
func (g *Gauge) Enter() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	if g.current > g.max {
		g.max = g.current
	}
}

// Leave decrements the in-flight count.
func (g *Gauge) Leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current--
}

// Max returns the highest observed in-flight count.
func (g *Gauge) Max() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}

// ScriptedAgent is a deterministic agent for tests. Configure it with fluent
// chaining:
//
//	a := NewScriptedAgent("b").FailTimes(2, errors.New("flaky")).Returns("ok")
//
// By default it answers "<name>: <task>".
type ScriptedAgent struct {
	mu        sync.Mutex
	name      string
	response  string
	hasCanned bool
	failures  int
	failErr   error
	delay     time.Duration
	gauge     *Gauge
	calls     []string
}

// NewScriptedAgent creates an agent that echoes its task.
func NewScriptedAgent(name string) *ScriptedAgent {
	return &ScriptedAgent{name: name}
}

// Returns sets a fixed response returned on success (chainable).
func (a *ScriptedAgent) Returns(response string) *ScriptedAgent {
	a.response = response
	a.hasCanned = true
	return a
}

// FailTimes makes the next n calls return err before succeeding (chainable).
func (a *ScriptedAgent) FailTimes(n int, err error) *ScriptedAgent {
	a.failures = n
	a.failErr = err
	return a
}

// AlwaysFail makes every call return err (chainable).
func (a *ScriptedAgent) AlwaysFail(err error) *ScriptedAgent {
	a.failures = -1
	a.failErr = err
	return a
}

// Delay makes each call block for d, honoring context cancellation (chainable).
func (a *ScriptedAgent) Delay(d time.Duration) *ScriptedAgent {
	a.delay = d
	return a
}

// Gauge attaches a shared in-flight gauge (chainable).
func (a *ScriptedAgent) Gauge(g *Gauge) *ScriptedAgent {
	a.gauge = g
	return a
}

// Name implements core.Agent.
func (a *ScriptedAgent) Name() string { return a.name }

// Respond implements core.Agent.
func (a *ScriptedAgent) Respond(ctx context.Context, task string) (string, error) {
	if a.gauge != nil {
		a.gauge.Enter()
		defer a.gauge.Leave()
	}

	a.mu.Lock()
	a.calls = append(a.calls, task)
	fail := a.failures != 0
	if a.failures > 0 {
		a.failures--
	}
	response := a.response
	hasCanned := a.hasCanned
	delay := a.delay
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if fail {
		return "", a.failErr
	}

	if hasCanned {
		return response, nil
	}

	return fmt.Sprintf("%s: %s", a.name, task), nil
}

// Calls returns the tasks received so far.
func (a *ScriptedAgent) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.calls))
	copy(out, a.calls)
	return out
}

// CallCount returns the number of received calls.
func (a *ScriptedAgent) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}
