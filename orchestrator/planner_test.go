package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/internal/testutil"
	"github.com/hupe1980/agentswarm/model"
)

func testAgents(names ...string) []core.Agent {
	out := make([]core.Agent, 0, len(names))
	for _, n := range names {
		out = append(out, testutil.NewScriptedAgent(n))
	}
	return out
}

func TestFanOutPlanner(t *testing.T) {
	assignments, err := FanOutPlanner{}.Plan(context.Background(), "task", testAgents("a", "b"))
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, Assignment{Agent: "a", Task: "task"}, assignments[0])
	assert.Equal(t, Assignment{Agent: "b", Task: "task"}, assignments[1])
}

func TestModelPlanner(t *testing.T) {
	mock := model.NewMockModel("planner")
	mock.Enqueue(&model.Response{Text: `Here is the plan:
[
  {"agent": "architect", "task": "design the schema"},
  {"agent": "developer", "task": "implement it", "depends_on": ["architect"]}
]`})

	planner := NewModelPlanner(mock)

	assignments, err := planner.Plan(context.Background(), "build it", testAgents("architect", "developer"))
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "design the schema", assignments[0].Task)
	assert.Equal(t, []string{"architect"}, assignments[1].DependsOn)
}

func TestModelPlannerUnknownAgent(t *testing.T) {
	mock := model.NewMockModel("planner")
	mock.Enqueue(&model.Response{Text: `[{"agent": "ghost", "task": "haunt"}]`})

	_, err := NewModelPlanner(mock).Plan(context.Background(), "task", testAgents("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")
}

func TestModelPlannerMalformedAnswer(t *testing.T) {
	mock := model.NewMockModel("planner")
	mock.Enqueue(&model.Response{Text: "I cannot plan this."})

	_, err := NewModelPlanner(mock).Plan(context.Background(), "task", testAgents("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON array")
}

func TestModelPlannerModelFailure(t *testing.T) {
	mock := model.NewMockModel("planner")
	mock.Fail(errors.New("provider down"))

	_, err := NewModelPlanner(mock).Plan(context.Background(), "task", testAgents("a"))
	require.Error(t, err)
}

func TestConcatSynthesizer(t *testing.T) {
	out, err := ConcatSynthesizer{}.Synthesize(context.Background(), "task", []AgentResult{
		{Agent: "a", Response: "first"},
		{Agent: "b", Response: "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, "[a]\nfirst\n\n[b]\nsecond", out)
}

func TestModelSynthesizer(t *testing.T) {
	mock := model.NewMockModel("synth")
	mock.Enqueue(&model.Response{Text: "combined answer"})

	out, err := NewModelSynthesizer(mock).Synthesize(context.Background(), "task", []AgentResult{
		{Agent: "a", Response: "first"},
	})
	require.NoError(t, err)
	assert.Equal(t, "combined answer", out)
}

func TestModelSynthesizerFailure(t *testing.T) {
	mock := model.NewMockModel("synth")
	mock.Fail(errors.New("provider down"))

	_, err := NewModelSynthesizer(mock).Synthesize(context.Background(), "task", []AgentResult{
		{Agent: "a", Response: "first"},
	})
	require.Error(t, err)
}
