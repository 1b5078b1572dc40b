package session

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithRecord stores the tracked record in ctx.
func WithRecord(ctx context.Context, rec *Record) context.Context {
	return context.WithValue(ctx, contextKey{}, rec)
}

// FromContext returns the record stored by WithRecord.
func FromContext(ctx context.Context) (*Record, bool) {
	rec, ok := ctx.Value(contextKey{}).(*Record)
	return rec, ok && rec != nil
}

// IDFromContext returns the session id set by Middleware, or "".
func IDFromContext(ctx context.Context) string {
	if rec, ok := FromContext(ctx); ok {
		return rec.ID
	}
	return ""
}

// LoggerExtractor adds session_id to records logged with a tracked context.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := IDFromContext(ctx); id != "" {
			return slog.String("session_id", id), true
		}
		return slog.Attr{}, false
	}
}
