package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON on stdout so log
// shippers can ingest it without extra parsing.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// NewNop returns a logger that discards everything; for tests.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
