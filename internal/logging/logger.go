// Package logging defines the structured-logging interface used across
// xjournal and its log/slog implementation.
//
// Entry titles, contents and key material are never passed to a Logger;
// callers log ids, journal ids and statuses only.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "entry saved", "id", id, "journal", journalID)
type Logger interface {
	// Debug logs diagnostic detail, disabled by default.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
