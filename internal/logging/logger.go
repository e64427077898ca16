// Package logging configures log/slog for the server and the CLI.
//
// Request-scoped loggers pick up chi's request ID so every entry written
// while serving one upload can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// New builds a logger writing to w.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup installs a stderr logger as the slog default. Stdout is left free
// for command output.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// ParseLevel converts a level name to slog.Level, falling back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// FromContext returns the default logger, tagged with the chi request ID
// when ctx carries one.
func FromContext(ctx context.Context) *slog.Logger {
	return WithFields(ctx, nil)
}

// WithFields returns base tagged with the request ID from ctx, plus extra
// structured fields. A nil base means slog.Default().
//
//	runLogger := logging.WithFields(ctx, logger,
//	    "run_id", runID,
//	    "schema", def.Key,
//	)
//	runLogger.Info("validation started")
func WithFields(ctx context.Context, base *slog.Logger, args ...any) *slog.Logger {
	logger := base
	if logger == nil {
		logger = slog.Default()
	}

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if len(args) > 0 {
		logger = logger.With(args...)
	}
	return logger
}
