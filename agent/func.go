package agent

import (
	"context"

	"github.com/hupe1980/agentswarm/core"
)

// FuncAgent adapts a plain Go function into a core.Agent. Useful for tests,
// examples and deterministic workers that need no model behind them.
type FuncAgent struct {
	name string
	fn   func(ctx context.Context, task string) (string, error)
}

var _ core.Agent = (*FuncAgent)(nil)

// NewFuncAgent wraps fn under the given agent name.
func NewFuncAgent(name string, fn func(ctx context.Context, task string) (string, error)) *FuncAgent {
	return &FuncAgent{name: name, fn: fn}
}

// Name implements core.Agent.
func (a *FuncAgent) Name() string { return a.name }

// Respond implements core.Agent.
func (a *FuncAgent) Respond(ctx context.Context, task string) (string, error) {
	return a.fn(ctx, task)
}
