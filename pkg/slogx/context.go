package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or slog.Default outside a request.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// With returns ctx with attrs added to its logger.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// Attribute keys shared by handlers and services.
const (
	KeySubject = "subject_id"
	KeyAction  = "action"
)

// WithSubject tags ctx's logger with the member an operation acts for.
func WithSubject(ctx context.Context, subjectID string) context.Context {
	return With(ctx, KeySubject, subjectID)
}

// WithAction tags ctx's logger with an action link kind.
func WithAction(ctx context.Context, action string) context.Context {
	return With(ctx, KeyAction, action)
}
