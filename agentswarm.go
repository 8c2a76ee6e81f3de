// Package agentswarm provides a high-level façade over the message bus,
// shared agent memory and orchestrator, enabling rapid construction of
// multi-agent systems. Most applications interact with this package by:
//  1. Creating a Swarm via New() (optionally overriding default in-memory services)
//  2. Registering one or more agents (model-backed, function-backed, custom)
//  3. Executing tasks under a strategy (parallel, sequential, hierarchical,
//     collaborative)
//
// The façade delegates execution to orchestrator.Orchestrator while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a durable
// memory backend and a structured logger.
package agentswarm

import (
	"context"

	"github.com/hupe1980/agentswarm/bus"
	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/logging"
	"github.com/hupe1980/agentswarm/memory"
	"github.com/hupe1980/agentswarm/orchestrator"
)

// Options configures the Swarm instance.
type Options struct {
	// Store backs the shared agent memory (defaults to in-memory).
	Store memory.Store
	// Bus routes inter-agent messages and run lifecycle events (defaults to
	// a fresh bus).
	Bus *bus.Bus
	// Planner decomposes hierarchical runs (defaults to fan-out).
	Planner orchestrator.Planner
	// Synthesizer combines sub-results (defaults to concatenation).
	Synthesizer orchestrator.Synthesizer
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Swarm is the high-level façade aggregating the bus, shared memory and
// orchestrator.
type Swarm struct {
	bus    *bus.Bus
	memory *memory.SharedMemory
	orch   *orchestrator.Orchestrator
}

// New creates a Swarm with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Swarm {
	opts := Options{
		Store:       memory.NewInMemoryStore(),
		Planner:     orchestrator.FanOutPlanner{},
		Synthesizer: orchestrator.ConcatSynthesizer{},
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Bus == nil {
		opts.Bus = bus.New(func(o *bus.Options) { o.Logger = opts.Logger })
	}

	shared := memory.NewSharedMemory(opts.Store)

	orch := orchestrator.New(func(o *orchestrator.Options) {
		o.Memory = shared
		o.Bus = opts.Bus
		o.Planner = opts.Planner
		o.Synthesizer = opts.Synthesizer
		o.Logger = opts.Logger
	})

	return &Swarm{bus: opts.Bus, memory: shared, orch: orch}
}

// RegisterAgent adds an agent to the underlying orchestrator.
func (s *Swarm) RegisterAgent(a core.Agent) error { return s.orch.RegisterAgent(a) }

// Execute runs the task under the given configuration. It never returns a
// Go error; inspect the Result's Success, Errors and Results fields.
func (s *Swarm) Execute(ctx context.Context, task string, cfg orchestrator.Config, optFns ...func(*orchestrator.RunOptions)) *orchestrator.Result {
	return s.orch.Execute(ctx, task, cfg, optFns...)
}

// Bus exposes the message bus for direct subscription and publishing.
func (s *Swarm) Bus() *bus.Bus { return s.bus }

// Memory exposes the shared agent memory.
func (s *Swarm) Memory() *memory.SharedMemory { return s.memory }

// Orchestrator exposes the underlying orchestrator.
func (s *Swarm) Orchestrator() *orchestrator.Orchestrator { return s.orch }
