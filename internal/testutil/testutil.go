// Package testutil provides shared test infrastructure: a pattern
// matching mock model, a deterministic mock embedder, and a disposable
// PostgreSQL container with the schema applied.
package testutil

import (
	"io"
	"log/slog"
)

// QuietLogger returns a logger that only surfaces warnings and errors,
// keeping test output readable.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
