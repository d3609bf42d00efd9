// Package logging builds the process logger.
package logging

import (
	"io"
	"log"
	"log/slog"
	"strings"
)

// New returns a slog logger writing to w at the given level ("debug",
// "info", "warn", "error"; unknown means info) in "text" or "json" format.
// The legacy log package is pointed at the same writer.
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	log.SetOutput(w)
	return slog.New(h)
}

// ParseLevel maps a config string to a slog level.
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
