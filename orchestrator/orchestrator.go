package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/agentswarm/bus"
	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/logging"
	"github.com/hupe1980/agentswarm/memory"
)

const (
	// orchestratorAuthor is the sender identity of run lifecycle events.
	orchestratorAuthor = "orchestrator"

	retryInitialInterval = 100 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
)

// Options configures an Orchestrator.
type Options struct {
	// Memory receives progress notes and checkpoints (defaults to a fresh
	// in-memory shared memory).
	Memory *memory.SharedMemory
	// Bus, when set, receives run.started / task.completed / run.completed
	// events observers can subscribe to.
	Bus *bus.Bus
	// Planner decomposes hierarchical runs (defaults to FanOutPlanner).
	Planner Planner
	// Synthesizer combines sub-results into the final output (defaults to
	// ConcatSynthesizer).
	Synthesizer Synthesizer
	// Logger receives run diagnostics (defaults to NoOp).
	Logger logging.Logger
	// NewBackOff produces the per-invocation retry policy. The default is
	// capped exponential backoff with jitter.
	NewBackOff func() backoff.BackOff
}

// Orchestrator executes tasks across registered agents. It is safe for
// concurrent use; each Execute call runs with its own semaphore and result.
type Orchestrator struct {
	mu     sync.RWMutex
	agents map[string]core.Agent
	order  []string

	memory      *memory.SharedMemory
	bus         *bus.Bus
	planner     Planner
	synthesizer Synthesizer
	logger      logging.Logger
	newBackOff  func() backoff.BackOff
}

// New constructs an Orchestrator with optional overrides.
func New(optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Memory:      memory.NewSharedMemory(memory.NewInMemoryStore()),
		Planner:     FanOutPlanner{},
		Synthesizer: ConcatSynthesizer{},
		Logger:      logging.NoOpLogger{},
		NewBackOff:  defaultBackOff,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		agents:      make(map[string]core.Agent),
		memory:      opts.Memory,
		bus:         opts.Bus,
		planner:     opts.Planner,
		synthesizer: opts.Synthesizer,
		logger:      opts.Logger,
		newBackOff:  opts.NewBackOff,
	}
}

// defaultBackOff returns capped exponential backoff with jitter.
func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	bo.MaxElapsedTime = 0 // attempts are bounded by MaxRetries, not time
	return bo
}

// RegisterAgent adds an agent under its name. Names must be unique.
func (o *Orchestrator) RegisterAgent(a core.Agent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	name := a.Name()
	if _, exists := o.agents[name]; exists {
		return fmt.Errorf("agent %q already registered", name)
	}

	o.agents[name] = a
	o.order = append(o.order, name)

	return nil
}

// Agents returns the registered agents in registration order.
func (o *Orchestrator) Agents() []core.Agent {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]core.Agent, 0, len(o.order))
	for _, name := range o.order {
		out = append(out, o.agents[name])
	}
	return out
}

// Memory exposes the shared memory used for notes and checkpoints.
func (o *Orchestrator) Memory() *memory.SharedMemory { return o.memory }

// RunOptions customize a single Execute call.
type RunOptions struct {
	// Metadata is merged into the Result's metadata.
	Metadata map[string]any
}

// WithRunMetadata attaches caller metadata to the run's Result.
func WithRunMetadata(md map[string]any) func(*RunOptions) {
	return func(o *RunOptions) { o.Metadata = md }
}

// Execute runs the task under the configured strategy and returns the
// complete outcome. It never returns a Go error: failed sub-tasks, synthesis
// failures, cancellation and timeout are all recorded as data in the Result.
// Partial results are preserved on failure.
func (o *Orchestrator) Execute(ctx context.Context, task string, cfg Config, optFns ...func(*RunOptions)) *Result {
	var runOpts RunOptions
	for _, fn := range optFns {
		fn(&runOpts)
	}

	cfg = cfg.withDefaults()
	runID := core.NewID()

	result := &Result{
		State:    StatePending,
		Strategy: cfg.Strategy,
		Metadata: map[string]any{"run_id": runID},
	}
	for k, v := range runOpts.Metadata {
		result.Metadata[k] = v
	}

	agents := o.Agents()
	if len(agents) == 0 {
		result.State = StateFailed
		result.Errors = append(result.Errors, "no agents registered")
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	result.State = StateRunning

	o.publishEvent(ctx, runID, "run.started", map[string]string{
		"strategy": string(cfg.Strategy),
		"agents":   fmt.Sprintf("%d", len(agents)),
	})
	o.logger.Info("run.started", "run_id", runID, "strategy", string(cfg.Strategy), "agents", len(agents))

	r := &run{
		o:      o,
		cfg:    cfg,
		id:     runID,
		sem:    semaphore.NewWeighted(int64(cfg.MaxParallelism)),
		result: result,
	}

	var (
		output string
		err    error
	)

	switch cfg.Strategy {
	case StrategyParallel:
		output, err = r.parallel(ctx, task, agents)
	case StrategySequential:
		output, err = r.sequential(ctx, task, agents)
	case StrategyHierarchical:
		output, err = r.hierarchical(ctx, task, agents)
	case StrategyCollaborative:
		output, err = r.collaborative(ctx, task, agents)
	default:
		err = fmt.Errorf("unknown strategy: %q", cfg.Strategy)
	}

	result.Duration = time.Since(start)

	if cerr := ctx.Err(); cerr != nil {
		result.State = StateFailed
		result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", ErrCancelled, cerr))
	} else if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		result.State = StateFailed
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.State = StateSucceeded
		result.Success = true
		result.Output = output
	}

	o.publishEvent(ctx, runID, "run.completed", map[string]string{
		"strategy": string(cfg.Strategy),
		"success":  fmt.Sprintf("%t", result.Success),
	})
	o.logger.Info("run.completed", "run_id", runID, "strategy", string(cfg.Strategy),
		"success", result.Success, "sub_tasks", len(result.Results), "duration", result.Duration)

	return result
}

// publishEvent broadcasts a run lifecycle event when a bus is configured.
// Delivery failures never affect the run.
func (o *Orchestrator) publishEvent(ctx context.Context, runID, name string, md map[string]string) {
	if o.bus == nil {
		return
	}

	opts := []core.MessageOption{
		core.WithMetadata("event", name),
		core.WithMetadata("run_id", runID),
	}
	for k, v := range md {
		opts = append(opts, core.WithMetadata(k, v))
	}

	if err := o.bus.Publish(ctx, core.NewEvent(orchestratorAuthor, name, opts...)); err != nil {
		o.logger.Warn("run.event.publish", "run_id", runID, "event", name, "error", err.Error())
	}
}

// run bundles the per-Execute state shared between strategy methods.
type run struct {
	o   *Orchestrator
	cfg Config
	id  string
	sem *semaphore.Weighted

	mu     sync.Mutex
	result *Result
}

// invoke performs one bounded, retried agent call. It acquires the shared
// semaphore for the full duration of the call, so no strategy can exceed the
// configured parallelism. The outcome is returned, not recorded.
func (r *run) invoke(ctx context.Context, agent core.Agent, task string) AgentResult {
	res := AgentResult{Agent: agent.Name(), Task: task}
	start := time.Now()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		res.Err = (&CapabilityError{Agent: res.Agent, Err: err}).Error()
		res.Duration = time.Since(start)
		return res
	}
	defer r.sem.Release(1)

	var response string
	operation := func() error {
		res.Attempts++
		var err error
		response, err = agent.Respond(ctx, task)
		return err
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(r.o.newBackOff(), uint64(r.cfg.MaxRetries-1)),
		ctx,
	)

	err := backoff.Retry(operation, bo)
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = (&CapabilityError{Agent: res.Agent, Err: err}).Error()
		r.o.logger.Warn("task.failed", "run_id", r.id, "agent", res.Agent, "attempts", res.Attempts, "error", err.Error())
		return res
	}

	res.Response = response
	r.o.logger.Debug("task.succeeded", "run_id", r.id, "agent", res.Agent, "attempts", res.Attempts, "duration", res.Duration)

	return res
}

// record appends a finished sub-task to the run's result and performs the
// per-sub-task side effects: a progress note on success, a checkpoint when
// configured, and a task.completed bus event.
func (r *run) record(ctx context.Context, ar AgentResult) {
	r.mu.Lock()
	r.result.Results = append(r.result.Results, ar)
	if ar.Failed() {
		r.result.Errors = append(r.result.Errors, ar.Err)
	}
	r.mu.Unlock()

	if !ar.Failed() && r.o.memory != nil {
		note := fmt.Sprintf("completed sub-task %q", truncate(ar.Task, 120))
		if err := r.o.memory.AddNote(ctx, ar.Agent, note, "run:"+r.id); err != nil {
			r.o.logger.Warn("task.note", "run_id", r.id, "agent", ar.Agent, "error", err.Error())
		}
	}

	if r.cfg.Checkpoint {
		r.checkpoint(ctx)
	}

	r.o.publishEvent(ctx, r.id, "task.completed", map[string]string{
		"agent":  ar.Agent,
		"failed": fmt.Sprintf("%t", ar.Failed()),
	})
}

// addError appends a non-fatal error to the run's result.
func (r *run) addError(msg string) {
	r.mu.Lock()
	r.result.Errors = append(r.result.Errors, msg)
	r.mu.Unlock()
}

// checkpoint persists the current result snapshot to shared memory.
func (r *run) checkpoint(ctx context.Context) {
	if r.o.memory == nil {
		return
	}

	r.mu.Lock()
	snapshot := make([]AgentResult, len(r.result.Results))
	copy(snapshot, r.result.Results)
	r.mu.Unlock()

	if err := r.o.memory.Remember(ctx, "checkpoint:"+r.id, snapshot, orchestratorAuthor); err != nil {
		r.o.logger.Warn("run.checkpoint", "run_id", r.id, "error", err.Error())
	}
}

// synthesize combines the successful results into the run's final output.
// At least one sub-task must have succeeded; synthesis failure fails the run.
func (r *run) synthesize(ctx context.Context, task string) (string, error) {
	r.mu.Lock()
	succeeded := successes(r.result.Results)
	total := len(r.result.Results)
	r.mu.Unlock()

	if len(succeeded) == 0 {
		return "", fmt.Errorf("all %d sub-tasks failed", total)
	}

	output, err := r.o.synthesizer.Synthesize(ctx, task, succeeded)
	if err != nil {
		return "", &SynthesisError{Err: err}
	}

	return output, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
