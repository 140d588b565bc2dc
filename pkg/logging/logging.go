// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/titanic-mlops/titanic-survival/pkg/config"
)

// ParseLevel maps a LOG_LEVEL value onto a slog level. Unknown values are INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewWithWriter creates a logger writing to w in the given format ("json" or "text")
func NewWithWriter(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("service", "titanic")
}

// New creates the logger described by cfg, writing to stdout, and installs it
// as the slog default.
func New(cfg *config.Config) *slog.Logger {
	logger := NewWithWriter(os.Stdout, cfg.LogFormat, cfg.LogLevel).
		With("environment", cfg.Environment)
	slog.SetDefault(logger)
	return logger
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
