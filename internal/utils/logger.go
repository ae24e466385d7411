package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger: JSON at info level in production,
// text at debug level otherwise. level overrides the default when set.
func NewLogger(environment, level string) *slog.Logger {
	return NewLoggerTo(os.Stderr, environment, level)
}

func NewLoggerTo(w io.Writer, environment, level string) *slog.Logger {
	production := environment == "production"

	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if production {
		opts.Level = slog.LevelInfo
	}
	if lvl, ok := ParseLevel(level); ok {
		opts.Level = lvl
	}

	if production {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
