package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/logging"
	"github.com/hupe1980/agentswarm/model"
)

const defaultMaxToolTurns = 5

// Options configures a ModelAgent.
type Options struct {
	// Instructions is the system-level guidance sent with every request.
	Instructions string
	// Tools the model may call; results are fed back into the next turn.
	Tools []*Tool
	// MaxToolTurns bounds the tool-call loop per Respond call.
	MaxToolTurns int
	// Logger receives per-call diagnostics (defaults to NoOp).
	Logger logging.Logger
}

// ModelAgent implements core.Agent on top of a model.Model. When the model's
// response requests tool calls, ModelAgent executes them through HandleTool
// and feeds the results back into the same agent's next turn, up to
// MaxToolTurns iterations.
type ModelAgent struct {
	name         string
	model        model.Model
	instructions string
	tools        map[string]*Tool
	defs         []model.ToolDefinition
	maxToolTurns int
	logger       logging.Logger
}

var (
	_ core.Agent       = (*ModelAgent)(nil)
	_ core.ToolHandler = (*ModelAgent)(nil)
)

// New creates a ModelAgent with optional overrides. Configuration is
// explicit and per-instance; there is no process-wide model state.
func New(name string, m model.Model, optFns ...func(o *Options)) *ModelAgent {
	opts := Options{
		MaxToolTurns: defaultMaxToolTurns,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		name:         name,
		model:        m,
		instructions: opts.Instructions,
		tools:        make(map[string]*Tool, len(opts.Tools)),
		maxToolTurns: opts.MaxToolTurns,
		logger:       opts.Logger,
	}

	for _, tool := range opts.Tools {
		a.tools[tool.Name()] = tool
		a.defs = append(a.defs, tool.Definition())
	}

	return a
}

// Name implements core.Agent.
func (a *ModelAgent) Name() string { return a.name }

// Respond implements core.Agent. It completes the task against the model,
// resolving any requested tool calls along the way.
func (a *ModelAgent) Respond(ctx context.Context, task string) (string, error) {
	prompt := task

	for turn := 0; turn <= a.maxToolTurns; turn++ {
		start := time.Now()
		resp, err := a.model.Complete(ctx, model.Request{
			Instructions: a.instructions,
			Prompt:       prompt,
			Tools:        a.defs,
		})
		if err != nil {
			return "", fmt.Errorf("model call failed for agent %s: %w", a.name, err)
		}

		a.logger.Debug("agent.model.turn", "agent", a.name, "turn", turn, "tool_calls", len(resp.ToolCalls), "duration", time.Since(start))

		if len(resp.ToolCalls) == 0 {
			return resp.Text, nil
		}

		feedback, err := a.resolveToolCalls(ctx, resp.ToolCalls)
		if err != nil {
			return "", err
		}

		prompt = prompt + "\n\n" + feedback
	}

	return "", fmt.Errorf("agent %s exceeded %d tool turns", a.name, a.maxToolTurns)
}

// resolveToolCalls executes each requested call and renders the outcomes as
// prompt feedback for the next turn. Individual tool failures are reported
// back to the model rather than aborting the turn.
func (a *ModelAgent) resolveToolCalls(ctx context.Context, calls []model.ToolCall) (string, error) {
	var sb strings.Builder

	for _, call := range calls {
		var args map[string]any
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				return "", fmt.Errorf("invalid arguments for tool %s: %w", call.Name, err)
			}
		}

		result, err := a.HandleTool(ctx, call.Name, args)
		if err != nil {
			fmt.Fprintf(&sb, "Tool %s failed: %v\n", call.Name, err)
			continue
		}

		rendered, err := json.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("failed to render result of tool %s: %w", call.Name, err)
		}

		fmt.Fprintf(&sb, "Tool %s returned: %s\n", call.Name, rendered)
	}

	return sb.String(), nil
}

// HandleTool implements core.ToolHandler by routing to the registered tool.
func (a *ModelAgent) HandleTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	tool, ok := a.tools[name]
	if !ok {
		return nil, &ToolError{
			Tool:    name,
			Message: "no tool registered under this name",
			Code:    "UNKNOWN_TOOL",
		}
	}

	return tool.Call(ctx, args)
}
