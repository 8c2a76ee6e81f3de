package orchestrator

import "time"

// Strategy selects how a run distributes work across agents.
type Strategy string

const (
	// StrategyHierarchical plans (agent, sub-task) assignments first, executes
	// them with dependency-aware batching, then synthesizes the results.
	StrategyHierarchical Strategy = "hierarchical"
	// StrategyParallel sends the same task to every agent concurrently and
	// synthesizes the successful responses.
	StrategyParallel Strategy = "parallel"
	// StrategySequential pipes each agent's output into the next agent's
	// input; the first failure aborts the remaining stages.
	StrategySequential Strategy = "sequential"
	// StrategyCollaborative gathers independent contributions, iterates
	// refinement rounds where each agent sees its peers' work, then
	// synthesizes the final round.
	StrategyCollaborative Strategy = "collaborative"
)

const (
	defaultMaxRetries     = 3
	defaultTimeout        = 5 * time.Minute
	defaultMaxParallelism = 4
	defaultRounds         = 3
)

// Config bounds a single run. The zero value is usable: missing fields are
// replaced with defaults at Execute time.
type Config struct {
	// Strategy selects the execution pattern (default Parallel).
	Strategy Strategy
	// MaxRetries is the total number of attempts per agent invocation.
	MaxRetries int
	// Timeout bounds the whole run end to end.
	Timeout time.Duration
	// MaxParallelism caps concurrently in-flight agent calls across the run.
	MaxParallelism int
	// Checkpoint persists the per-run result snapshot to shared memory after
	// every completed sub-task.
	Checkpoint bool
	// Rounds is the number of refinement rounds for Collaborative runs.
	Rounds int
}

// DefaultConfig returns the baseline run configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:       StrategyParallel,
		MaxRetries:     defaultMaxRetries,
		Timeout:        defaultTimeout,
		MaxParallelism: defaultMaxParallelism,
		Rounds:         defaultRounds,
	}
}

// withDefaults fills unset fields so strategies never see invalid bounds.
func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = StrategyParallel
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxParallelism <= 0 {
		c.MaxParallelism = defaultMaxParallelism
	}
	if c.Rounds <= 0 {
		c.Rounds = defaultRounds
	}
	return c
}
