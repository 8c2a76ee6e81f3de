package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentswarm/agent"
	"github.com/hupe1980/agentswarm/bus"
	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/internal/testutil"
	"github.com/hupe1980/agentswarm/memory"
)

// newTestOrchestrator builds an orchestrator with zero retry delay so retry
// tests run instantly.
func newTestOrchestrator(t *testing.T, optFns ...func(o *Options)) *Orchestrator {
	t.Helper()

	fns := append([]func(o *Options){func(o *Options) {
		o.NewBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	}}, optFns...)

	return New(fns...)
}

func register(t *testing.T, o *Orchestrator, agents ...core.Agent) {
	t.Helper()
	for _, a := range agents {
		require.NoError(t, o.RegisterAgent(a))
	}
}

func TestRegisterAgentDuplicate(t *testing.T) {
	o := newTestOrchestrator(t)

	require.NoError(t, o.RegisterAgent(testutil.NewScriptedAgent("a")))
	err := o.RegisterAgent(testutil.NewScriptedAgent("a"))
	assert.Error(t, err)
}

func TestExecuteNoAgents(t *testing.T) {
	o := newTestOrchestrator(t)

	result := o.Execute(context.Background(), "task", DefaultConfig())
	assert.False(t, result.Success)
	assert.Equal(t, StateFailed, result.State)
	assert.Contains(t, result.Errors, "no agents registered")
}

func TestParallelRetryThenSucceed(t *testing.T) {
	a := testutil.NewScriptedAgent("A").Returns("slogan A")
	b := testutil.NewScriptedAgent("B").FailTimes(2, errors.New("flaky provider")).Returns("slogan B")
	c := testutil.NewScriptedAgent("C").Returns("slogan C")

	o := newTestOrchestrator(t)
	register(t, o, a, b, c)

	result := o.Execute(context.Background(), "draft a slogan", Config{
		Strategy:   StrategyParallel,
		MaxRetries: 3,
	})

	require.True(t, result.Success)
	assert.Equal(t, StateSucceeded, result.State)
	require.Len(t, result.Results, 3)
	for _, r := range result.Results {
		assert.False(t, r.Failed(), "agent %s", r.Agent)
	}
	assert.Empty(t, result.Errors)

	// B succeeded on its third attempt
	assert.Equal(t, "B", result.Results[1].Agent)
	assert.Equal(t, 3, result.Results[1].Attempts)
	assert.Equal(t, 3, b.CallCount())
}

func TestParallelPartialSuccess(t *testing.T) {
	a := testutil.NewScriptedAgent("A").Returns("fine")
	b := testutil.NewScriptedAgent("B").AlwaysFail(errors.New("permanently broken"))
	c := testutil.NewScriptedAgent("C").Returns("also fine")

	o := newTestOrchestrator(t)
	register(t, o, a, b, c)

	result := o.Execute(context.Background(), "task", Config{
		Strategy:   StrategyParallel,
		MaxRetries: 2,
	})

	// at-least-one quorum: the run succeeds on the surviving responses
	assert.True(t, result.Success)
	require.Len(t, result.Results, 3)
	assert.True(t, result.Results[1].Failed())
	assert.Equal(t, 2, result.Results[1].Attempts)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "permanently broken")

	// synthesis covers only the successful responses
	assert.Contains(t, result.Output, "[A]")
	assert.Contains(t, result.Output, "[C]")
	assert.NotContains(t, result.Output, "[B]")
}

func TestParallelAllFail(t *testing.T) {
	a := testutil.NewScriptedAgent("A").AlwaysFail(errors.New("down"))
	b := testutil.NewScriptedAgent("B").AlwaysFail(errors.New("down"))

	o := newTestOrchestrator(t)
	register(t, o, a, b)

	result := o.Execute(context.Background(), "task", Config{Strategy: StrategyParallel, MaxRetries: 1})

	assert.False(t, result.Success)
	assert.Equal(t, StateFailed, result.State)
	assert.Len(t, result.Results, 2)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "all 2 sub-tasks failed")
}

func TestParallelRespectsMaxParallelism(t *testing.T) {
	gauge := &testutil.Gauge{}

	o := newTestOrchestrator(t)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		register(t, o, testutil.NewScriptedAgent(name).Gauge(gauge).Delay(20*time.Millisecond))
	}

	result := o.Execute(context.Background(), "task", Config{
		Strategy:       StrategyParallel,
		MaxParallelism: 2,
	})

	require.True(t, result.Success)
	assert.LessOrEqual(t, gauge.Max(), 2)
}

func TestSequentialPipeline(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o,
		testutil.NewScriptedAgent("upper"),
		testutil.NewScriptedAgent("final").Returns("done"),
	)

	result := o.Execute(context.Background(), "start", Config{Strategy: StrategySequential})

	require.True(t, result.Success)
	require.Len(t, result.Results, 2)
	// stage two received stage one's output verbatim
	assert.Equal(t, "upper: start", result.Results[1].Task)
	// the pipeline output is the final stage's output, no synthesis applied
	assert.Equal(t, "done", result.Output)
}

func TestSequentialAbortsOnStageFailure(t *testing.T) {
	architect := testutil.NewScriptedAgent("Architect").Returns("the design")
	developer := testutil.NewScriptedAgent("Developer").AlwaysFail(errors.New("compile error"))
	reviewer := testutil.NewScriptedAgent("Reviewer")

	o := newTestOrchestrator(t)
	register(t, o, architect, developer, reviewer)

	result := o.Execute(context.Background(), "build the service", Config{
		Strategy:   StrategySequential,
		MaxRetries: 2,
	})

	assert.False(t, result.Success)
	assert.Equal(t, StateFailed, result.State)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "Architect", result.Results[0].Agent)
	assert.False(t, result.Results[0].Failed())
	assert.Equal(t, "Developer", result.Results[1].Agent)
	assert.True(t, result.Results[1].Failed())
	assert.Zero(t, reviewer.CallCount())
}

func TestHierarchicalDependencyBatches(t *testing.T) {
	architect := testutil.NewScriptedAgent("Architect").Returns("design")
	developer := testutil.NewScriptedAgent("Developer").Returns("code")
	reviewer := testutil.NewScriptedAgent("Reviewer").Returns("approved")

	planner := plannerFunc(func(ctx context.Context, task string, agents []core.Agent) ([]Assignment, error) {
		return []Assignment{
			{Agent: "Architect", Task: "design it"},
			{Agent: "Developer", Task: "build it"},
			{Agent: "Reviewer", Task: "review it", DependsOn: []string{"Architect", "Developer"}},
		}, nil
	})

	o := newTestOrchestrator(t, func(opts *Options) { opts.Planner = planner })
	register(t, o, architect, developer, reviewer)

	result := o.Execute(context.Background(), "ship the feature", Config{Strategy: StrategyHierarchical})

	require.True(t, result.Success)
	require.Len(t, result.Results, 3)
	assert.Equal(t, "Reviewer", result.Results[2].Agent)
	assert.Equal(t, "review it", result.Results[2].Task)
	assert.Contains(t, result.Output, "[Reviewer]\napproved")
}

func TestHierarchicalPlannerFailure(t *testing.T) {
	planner := plannerFunc(func(ctx context.Context, task string, agents []core.Agent) ([]Assignment, error) {
		return nil, errors.New("manager unavailable")
	})

	o := newTestOrchestrator(t, func(opts *Options) { opts.Planner = planner })
	register(t, o, testutil.NewScriptedAgent("a"))

	result := o.Execute(context.Background(), "task", Config{Strategy: StrategyHierarchical})

	assert.False(t, result.Success)
	assert.Contains(t, result.Errors[0], "planning failed")
}

func TestHierarchicalUnknownAssignee(t *testing.T) {
	planner := plannerFunc(func(ctx context.Context, task string, agents []core.Agent) ([]Assignment, error) {
		return []Assignment{
			{Agent: "a", Task: "do it"},
			{Agent: "ghost", Task: "haunt"},
		}, nil
	})

	o := newTestOrchestrator(t, func(opts *Options) { opts.Planner = planner })
	register(t, o, testutil.NewScriptedAgent("a"))

	result := o.Execute(context.Background(), "task", Config{Strategy: StrategyHierarchical})

	// the known assignment still carries the run under the quorum rule
	assert.True(t, result.Success)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[1].Failed())
}

func TestCollaborativeRounds(t *testing.T) {
	a := testutil.NewScriptedAgent("a")
	b := testutil.NewScriptedAgent("b")

	o := newTestOrchestrator(t)
	register(t, o, a, b)

	result := o.Execute(context.Background(), "write a haiku", Config{
		Strategy: StrategyCollaborative,
		Rounds:   2,
	})

	require.True(t, result.Success)
	require.Len(t, result.Results, 2)

	// one initial call plus two refinement rounds each
	assert.Equal(t, 3, a.CallCount())
	assert.Equal(t, 3, b.CallCount())

	// refinement prompts expose the peer's prior contribution
	calls := a.Calls()
	assert.Contains(t, calls[1], "Contribution from b")
	assert.Contains(t, calls[1], "Your previous contribution")
}

func TestCollaborativeKeepsContributionOnRoundFailure(t *testing.T) {
	a := testutil.NewScriptedAgent("a").Returns("stable contribution")

	// b contributes once, then fails every refinement round
	b := agent.NewFuncAgent("b", func(ctx context.Context, task string) (string, error) {
		if strings.Contains(task, "Your previous contribution") {
			return "", errors.New("refinement broke")
		}
		return "initial from b", nil
	})

	o := newTestOrchestrator(t)
	register(t, o, a, b)

	result := o.Execute(context.Background(), "task", Config{
		Strategy:   StrategyCollaborative,
		Rounds:     1,
		MaxRetries: 1,
	})

	require.True(t, result.Success)
	require.Len(t, result.Results, 2)

	// b's initial contribution survives the failed refinement
	assert.Equal(t, "b", result.Results[1].Agent)
	assert.False(t, result.Results[1].Failed())
	assert.Equal(t, "initial from b", result.Results[1].Response)

	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "round 1")
}

func TestCollaborativeRespectsMaxParallelism(t *testing.T) {
	gauge := &testutil.Gauge{}

	o := newTestOrchestrator(t)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		register(t, o, testutil.NewScriptedAgent(name).Gauge(gauge).Delay(10*time.Millisecond))
	}

	result := o.Execute(context.Background(), "task", Config{
		Strategy:       StrategyCollaborative,
		MaxParallelism: 3,
		Rounds:         1,
	})

	require.True(t, result.Success)
	assert.LessOrEqual(t, gauge.Max(), 3)
}

func TestExecuteTimeoutPreservesPartialResults(t *testing.T) {
	fast := testutil.NewScriptedAgent("fast").Returns("done")
	slow := testutil.NewScriptedAgent("slow").Delay(500 * time.Millisecond)

	o := newTestOrchestrator(t)
	register(t, o, fast, slow)

	result := o.Execute(context.Background(), "task", Config{
		Strategy: StrategyParallel,
		Timeout:  50 * time.Millisecond,
	})

	assert.False(t, result.Success)
	assert.Equal(t, StateFailed, result.State)
	require.Len(t, result.Results, 2)
	assert.False(t, result.Results[0].Failed())
	assert.True(t, result.Results[1].Failed())

	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "run cancelled")
}

func TestExecuteCancellation(t *testing.T) {
	slow := testutil.NewScriptedAgent("slow").Delay(time.Second)

	o := newTestOrchestrator(t)
	register(t, o, slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result := o.Execute(ctx, "task", Config{Strategy: StrategyParallel})

	assert.False(t, result.Success)
	assert.Equal(t, StateFailed, result.State)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSynthesisFailureFailsRun(t *testing.T) {
	o := newTestOrchestrator(t, func(opts *Options) {
		opts.Synthesizer = synthesizerFunc(func(ctx context.Context, task string, results []AgentResult) (string, error) {
			return "", errors.New("fragments do not cohere")
		})
	})
	register(t, o, testutil.NewScriptedAgent("a"))

	result := o.Execute(context.Background(), "task", Config{Strategy: StrategyParallel})

	assert.False(t, result.Success)
	assert.Equal(t, StateFailed, result.State)
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Failed())
	assert.Contains(t, result.Errors[0], "synthesis failed")
}

func TestExecuteWritesProgressNotes(t *testing.T) {
	shared := memory.NewSharedMemory(memory.NewInMemoryStore())

	o := newTestOrchestrator(t, func(opts *Options) { opts.Memory = shared })
	register(t, o, testutil.NewScriptedAgent("worker"))

	result := o.Execute(context.Background(), "task", Config{Strategy: StrategyParallel})
	require.True(t, result.Success)

	notes, err := shared.GetNotes(context.Background(), "worker", 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestExecuteCheckpoint(t *testing.T) {
	shared := memory.NewSharedMemory(memory.NewInMemoryStore())

	o := newTestOrchestrator(t, func(opts *Options) { opts.Memory = shared })
	register(t, o, testutil.NewScriptedAgent("a"), testutil.NewScriptedAgent("b"))

	result := o.Execute(context.Background(), "task", Config{
		Strategy:   StrategyParallel,
		Checkpoint: true,
	})
	require.True(t, result.Success)

	runID := result.Metadata["run_id"].(string)
	entry, err := shared.Recall(context.Background(), "checkpoint:"+runID)
	require.NoError(t, err)

	snapshot := entry.Value.([]AgentResult)
	assert.Len(t, snapshot, 2)
}

func TestExecutePublishesLifecycleEvents(t *testing.T) {
	b := bus.New()

	o := newTestOrchestrator(t, func(opts *Options) { opts.Bus = b })
	register(t, o, testutil.NewScriptedAgent("a"))

	result := o.Execute(context.Background(), "task", Config{Strategy: StrategyParallel})
	require.True(t, result.Success)

	events := b.GetHistory(bus.WithHistoryKind(core.KindEvent))
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Metadata["event"])
	}
	assert.Contains(t, names, "run.started")
	assert.Contains(t, names, "task.completed")
	assert.Contains(t, names, "run.completed")
}

func TestExecuteRunMetadata(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, testutil.NewScriptedAgent("a"))

	result := o.Execute(context.Background(), "task", DefaultConfig(),
		WithRunMetadata(map[string]any{"ticket": "T-42"}))

	require.True(t, result.Success)
	assert.Equal(t, "T-42", result.Metadata["ticket"])
	assert.NotEmpty(t, result.Metadata["run_id"])
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, StrategyParallel, cfg.Strategy)
	assert.Equal(t, defaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, defaultMaxParallelism, cfg.MaxParallelism)
	assert.Equal(t, defaultRounds, cfg.Rounds)
}

// plannerFunc adapts a function to the Planner interface.
type plannerFunc func(ctx context.Context, task string, agents []core.Agent) ([]Assignment, error)

func (f plannerFunc) Plan(ctx context.Context, task string, agents []core.Agent) ([]Assignment, error) {
	return f(ctx, task, agents)
}

// synthesizerFunc adapts a function to the Synthesizer interface.
type synthesizerFunc func(ctx context.Context, task string, results []AgentResult) (string, error)

func (f synthesizerFunc) Synthesize(ctx context.Context, task string, results []AgentResult) (string, error) {
	return f(ctx, task, results)
}
