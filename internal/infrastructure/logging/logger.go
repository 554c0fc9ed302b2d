// Package logging provides structured logging utilities.
//
// Text logs are formatted in Maven-style with colors:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value
//
// Setting the format to "json" switches to slog's JSON handler for
// machine consumption (cron runs, log shippers).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/config"
)

// NewLogger creates a structured logger based on config, writing to stdout
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo creates a structured logger writing to w
func NewLoggerTo(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewMavenHandler(w, opts))
}

// NewLoggerWithSystem creates a logger with a system prefix (e.g., "reconcile", "ledger", "amazon")
func NewLoggerWithSystem(cfg config.LoggingConfig, system string) *slog.Logger {
	return NewLogger(cfg).With("system", system)
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
