// Package logging provides structured logging for gdb-pounce.
//
// This package uses Go's standard library log/slog for structured, leveled
// logging. It is used for diagnostics only: the tool's stable status lines
// on stderr are part of an external contract and are written directly, not
// through a handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// EnvDebug is the environment variable that enables debug logging. The
// command line cannot carry a verbosity flag because unrecognized flags are
// forwarded to the debugger.
const EnvDebug = "GDB_POUNCE_DEBUG"

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
	// loggerMu protects defaultLogger.
	loggerMu sync.RWMutex
)

func init() {
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromEnv(),
	}))
}

// levelFromEnv picks the log level from EnvDebug. Diagnostics default to
// warnings only so they do not interleave with the status line contract.
func levelFromEnv() slog.Level {
	if v := os.Getenv(EnvDebug); v != "" && v != "0" {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// Config holds the logger configuration.
type Config struct {
	// Level is the minimum log level.
	Level slog.Level
	// Format is the output format ("text" or "json").
	Format string
	// Output is the log output destination.
	Output io.Writer
}

// NewLogger creates a new structured logger with the given configuration.
func NewLogger(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(handler)
}

// SetDefault sets the default global logger.
func SetDefault(logger *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
}

// Default returns the default global logger.
func Default() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// WithPID returns a logger with target process ID context.
func WithPID(logger *slog.Logger, pid int) *slog.Logger {
	return logger.With(slog.Int("pid", pid))
}

// WithComm returns a logger with kernel comm context.
func WithComm(logger *slog.Logger, comm string) *slog.Logger {
	return logger.With(slog.String("comm", comm))
}

// WithStage returns a logger with filter stage context ("bpf" or "userspace").
func WithStage(logger *slog.Logger, stage string) *slog.Logger {
	return logger.With(slog.String("stage", stage))
}

// Helper functions for common log patterns.

// Info logs an info message using the default logger.
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Error logs an error message using the default logger.
func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}
