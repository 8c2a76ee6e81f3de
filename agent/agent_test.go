package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentswarm/model"
)

func sumTool() *Tool {
	return NewTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"sum": args["a"].(float64) + args["b"].(float64)}, nil
		},
	)
}

func TestFuncAgent(t *testing.T) {
	a := NewFuncAgent("echo", func(ctx context.Context, task string) (string, error) {
		return "echo: " + task, nil
	})

	assert.Equal(t, "echo", a.Name())

	out, err := a.Respond(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)
}

func TestFuncAgentError(t *testing.T) {
	wantErr := errors.New("boom")

	a := NewFuncAgent("failing", func(ctx context.Context, task string) (string, error) {
		return "", wantErr
	})

	_, err := a.Respond(context.Background(), "task")
	assert.ErrorIs(t, err, wantErr)
}

func TestModelAgentPlainText(t *testing.T) {
	mock := model.NewMockModel("test-model")
	mock.AddResponse("summarize", "a short summary")

	a := New("writer", mock)

	out, err := a.Respond(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, "a short summary", out)
}

func TestModelAgentToolLoop(t *testing.T) {
	mock := model.NewMockModel("test-model")

	mock.Enqueue(&model.Response{
		FinishReason: "tool_calls",
		ToolCalls: []model.ToolCall{{
			ID:        "call-1",
			Name:      "calculate_sum",
			Arguments: json.RawMessage(`{"a": 2, "b": 3}`),
		}},
	})
	mock.Enqueue(&model.Response{Text: "the sum is 5", FinishReason: "stop"})

	a := New("calculator", mock, func(o *Options) {
		o.Tools = []*Tool{sumTool()}
	})

	out, err := a.Respond(context.Background(), "add 2 and 3")
	require.NoError(t, err)
	assert.Equal(t, "the sum is 5", out)
}

func TestModelAgentToolLoopBounded(t *testing.T) {
	mock := model.NewMockModel("test-model")

	// five scripted tool calls against a bound of two turns
	for i := 0; i < 5; i++ {
		mock.Enqueue(&model.Response{
			FinishReason: "tool_calls",
			ToolCalls: []model.ToolCall{{
				Name:      "calculate_sum",
				Arguments: json.RawMessage(`{"a": 1, "b": 1}`),
			}},
		})
	}

	a := New("calculator", mock, func(o *Options) {
		o.Tools = []*Tool{sumTool()}
		o.MaxToolTurns = 2
	})

	_, err := a.Respond(context.Background(), "keep adding")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool turns")
}

func TestModelAgentModelFailure(t *testing.T) {
	mock := model.NewMockModel("test-model")
	mock.Fail(errors.New("provider unavailable"))

	a := New("writer", mock)

	_, err := a.Respond(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unavailable")
}

func TestModelAgentToolFailureReportedToModel(t *testing.T) {
	mock := model.NewMockModel("test-model")

	mock.Enqueue(&model.Response{
		FinishReason: "tool_calls",
		ToolCalls: []model.ToolCall{{
			Name:      "calculate_sum",
			Arguments: json.RawMessage(`{"a": 1}`), // missing required "b"
		}},
	})
	mock.Enqueue(&model.Response{Text: "recovered", FinishReason: "stop"})

	a := New("calculator", mock, func(o *Options) {
		o.Tools = []*Tool{sumTool()}
	})

	out, err := a.Respond(context.Background(), "add something")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
}

func TestHandleToolUnknown(t *testing.T) {
	a := New("bare", model.NewMockModel("test-model"))

	_, err := a.HandleTool(context.Background(), "does_not_exist", nil)
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "UNKNOWN_TOOL", toolErr.Code)
}

func TestToolCallValidation(t *testing.T) {
	tool := sumTool()

	_, err := tool.Call(context.Background(), map[string]any{"a": 1.0})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestToolCallExecutionError(t *testing.T) {
	tool := NewTool("broken", "always fails", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, errors.New("disk full")
		})

	_, err := tool.Call(context.Background(), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Contains(t, toolErr.Message, "disk full")
}

func TestToolCallCustomCodePreserved(t *testing.T) {
	tool := NewTool("custom", "returns a custom tool error", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, &ToolError{Tool: "custom", Message: "quota exceeded", Code: "RATE_LIMITED"}
		})

	_, err := tool.Call(context.Background(), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

func TestToolCallSuccess(t *testing.T) {
	tool := sumTool()

	result, err := tool.Call(context.Background(), map[string]any{"a": 2.0, "b": 3.5})
	require.NoError(t, err)
	assert.Equal(t, 5.5, result["sum"])
}
