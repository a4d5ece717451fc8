package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// IntoContext stores a request-scoped logger.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or fallback when none was stored.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return L()
}

// WithViewer tags the request logger with the chat user the call acts for,
// so every later line of that request carries both ids.
func WithViewer(ctx context.Context, fallback *slog.Logger, userID uint64, externalID int64) context.Context {
	return IntoContext(ctx, FromContext(ctx, fallback).With("viewer", userID, "external_id", externalID))
}

// WithModerator tags the request logger with the authenticated moderator.
func WithModerator(ctx context.Context, fallback *slog.Logger, adminID int64) context.Context {
	return IntoContext(ctx, FromContext(ctx, fallback).With("moderator", adminID))
}
