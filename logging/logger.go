package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger defines the minimal logging interface for AgentSwarm.
// This allows users to provide their own logger implementation or use the
// built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NoOpLogger discards all log messages. Useful for testing or when logging
// is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// LoggerConfig configures construction of a SwarmLogger.
type LoggerConfig struct {
	Level     slog.Level
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: slog.LevelInfo, Format: "json", Output: os.Stdout}
}

// SwarmLogger wraps slog.Logger adding contextual cloning helpers and domain
// convenience methods. It is cheap to copy via the With* methods.
type SwarmLogger struct {
	logger    *slog.Logger
	component string
	runID     string
}

// NewLogger builds a SwarmLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *SwarmLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &SwarmLogger{logger: slog.New(handler), component: cfg.Component}
}

// WithComponent sets the logical component (bus, memory, orchestrator, etc.).
func (l *SwarmLogger) WithComponent(c string) *SwarmLogger {
	nl := *l
	nl.component = c
	return &nl
}

// WithRun attaches a run identifier to every subsequent entry.
func (l *SwarmLogger) WithRun(runID string) *SwarmLogger {
	nl := *l
	nl.runID = runID
	return &nl
}

func (l *SwarmLogger) attrs(extra []any) []any {
	args := make([]any, 0, len(extra)+4)
	if l.component != "" {
		args = append(args, "component", l.component)
	}
	if l.runID != "" {
		args = append(args, "run_id", l.runID)
	}
	return append(args, extra...)
}

// Debug logs at debug level.
func (l *SwarmLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, l.attrs(args)...) }

// Info logs at info level.
func (l *SwarmLogger) Info(msg string, args ...any) { l.logger.Info(msg, l.attrs(args)...) }

// Warn logs at warn level.
func (l *SwarmLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, l.attrs(args)...) }

// Error logs at error level.
func (l *SwarmLogger) Error(msg string, args ...any) { l.logger.Error(msg, l.attrs(args)...) }

// LogAgentCall records execution details for one agent invocation.
func (l *SwarmLogger) LogAgentCall(agent string, attempts int, dur time.Duration, err error) {
	args := l.attrs([]any{"agent", agent, "attempts", attempts, "duration", dur})
	if err != nil {
		args = append(args, "error", err.Error())
		l.logger.LogAttrs(context.Background(), slog.LevelError, "Agent call failed", slogArgs(args)...)
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, "Agent call completed", slogArgs(args)...)
}

// LogRunExecution records aggregate orchestrator run metrics.
func (l *SwarmLogger) LogRunExecution(strategy string, subTasks int, dur time.Duration, success bool) {
	level := slog.LevelInfo
	msg := "Run completed"
	if !success {
		level = slog.LevelError
		msg = "Run failed"
	}
	args := l.attrs([]any{"strategy", strategy, "sub_tasks", subTasks, "duration", dur, "success", success})
	l.logger.LogAttrs(context.Background(), level, msg, slogArgs(args)...)
}

// LogBusDelivery records a bus delivery outcome.
func (l *SwarmLogger) LogBusDelivery(kind, messageID string, handlers int, err error) {
	args := l.attrs([]any{"kind", kind, "message_id", messageID, "handlers", handlers})
	if err != nil {
		args = append(args, "error", err.Error())
		l.logger.LogAttrs(context.Background(), slog.LevelWarn, "Bus delivery failed", slogArgs(args)...)
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "Bus delivery completed", slogArgs(args)...)
}

// slogArgs converts alternating key/value pairs into slog attributes.
func slogArgs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}
