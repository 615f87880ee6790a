// Package logger provides the process-wide structured logger.
//
// It wraps log/slog with two handlers: a human-readable handler for
// terminals and a JSON handler for everything else (files, pipes, log
// collectors). The active logger is a package-level singleton configured
// once at startup via Init, mirroring how the rest of the engine is wired
// (a single process, no per-request logger construction).
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// currentCfg is the Config last passed to Init, reused by SetLevel.
var currentCfg atomic.Pointer[Config]

func init() {
	l := slog.New(newTextHandler(os.Stderr, slog.LevelInfo))
	current.Store(l)
}

// Config controls logger construction.
type Config struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string
	// Format is "text" (human-readable) or "json".
	Format string
	// Output is an io.Writer destination; nil defaults to stderr.
	Output io.Writer
}

// Init (re)configures the package-level logger. Safe to call concurrently
// with logging calls; a config reload only swaps the pointer.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := parseLevel(cfg.Level)

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		h = newTextHandler(out, level)
	}

	current.Store(slog.New(h))
	currentCfg.Store(&cfg)
}

// SetLevel updates only the minimum level of the active logger, without
// touching format/output. Used for live config reload (see internal/config).
func SetLevel(level string) {
	// Re-derive a handler at the new level from the last Init's format and
	// output.
	var cfg Config
	if prev := currentCfg.Load(); prev != nil {
		cfg = *prev
	}
	cfg.Level = level
	Init(cfg)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func get() *slog.Logger { return current.Load() }

func Debug(msg string, args ...any) { get().Debug(msg, args...) }
func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a child logger with the given attributes attached to every
// record. Callers hold onto the returned *slog.Logger for a request or
// background job's lifetime.
func With(args ...any) *slog.Logger { return get().With(args...) }

// Ctx logs with values pulled from ctx (currently the request id, if any).
func Ctx(ctx context.Context) *slog.Logger {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return get().With("request_id", id)
	}
	return get()
}

type requestIDKey struct{}

// WithRequestID returns a context carrying a request id for later retrieval
// by Ctx. Used by the API middleware.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
