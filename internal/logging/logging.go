// Package logging provides structured logging for cardiowatch.
//
// All components log through log/slog. The sensor, monitor and dashboard
// each obtain a component logger at package init:
//
//	var log = logging.Component("sensor")
//	log.Info("reading stored", "bpm", 72)
//
// Init is called once by the CLI after the configuration is loaded.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
	level  = new(slog.LevelVar)
)

// Init initializes the global logger with the specified level and format.
// If jsonFormat is true, logs are output as JSON; otherwise, human-readable text.
func Init(lvl slog.Level, jsonFormat bool) {
	InitWriter(os.Stderr, lvl, jsonFormat)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, lvl slog.Level, jsonFormat bool) {
	level.Set(lvl)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	InitWithHandler(handler)
}

// InitWithHandler initializes the global logger with a custom handler.
// Tests use it to capture output.
func InitWithHandler(handler slog.Handler) {
	mu.Lock()
	logger = slog.New(handler)
	mu.Unlock()
	slog.SetDefault(logger)
}

// ParseLevel converts a config string ("debug", "info", "warn", "error")
// into a slog.Level. Unknown strings map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the level of the running logger.
func SetLevel(lvl slog.Level) {
	level.Set(lvl)
}

func current() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		Init(slog.LevelInfo, false)
		mu.RLock()
		l = logger
		mu.RUnlock()
	}
	return l
}

// Component returns a handle that logs with a "component" attribute.
// The handle resolves the global logger on every call, so package-level
// component loggers pick up a later Init.
func Component(name string) *ComponentLogger {
	return &ComponentLogger{name: name}
}

// ComponentLogger is a lazily bound component logger.
type ComponentLogger struct {
	name string
}

func (c *ComponentLogger) l() *slog.Logger {
	return current().With("component", c.name)
}

// Debug logs at debug level.
func (c *ComponentLogger) Debug(msg string, args ...any) { c.l().Debug(msg, args...) }

// Info logs at info level.
func (c *ComponentLogger) Info(msg string, args ...any) { c.l().Info(msg, args...) }

// Warn logs at warning level.
func (c *ComponentLogger) Warn(msg string, args ...any) { c.l().Warn(msg, args...) }

// Error logs at error level.
func (c *ComponentLogger) Error(msg string, args ...any) { c.l().Error(msg, args...) }

// With returns a slog.Logger carrying the component and args.
func (c *ComponentLogger) With(args ...any) *slog.Logger {
	return c.l().With(args...)
}

// Context key types for type-safe context value extraction.
type contextKey int

const (
	contextKeyRequestID contextKey = iota
)

// ContextWithRequestID adds a request ID to the context for logging.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// WithContext returns a logger that includes context values.
func WithContext(ctx context.Context) *slog.Logger {
	l := current()
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok && id != "" {
		l = l.With("request_id", id)
	}
	return l
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Info logs at info level.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs at warning level.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { current().Error(msg, args...) }
