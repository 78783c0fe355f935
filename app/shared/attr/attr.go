// Package attr provides slog attribute helpers shared by every module.
package attr

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey string

// CorrelationIDKey is the context key holding the request correlation id.
const CorrelationIDKey ctxKey = "correlation_id"

func String(key, value string) slog.Attr                 { return slog.String(key, value) }
func Int(key string, value int) slog.Attr                { return slog.Int(key, value) }
func Int64(key string, value int64) slog.Attr            { return slog.Int64(key, value) }
func Bool(key string, value bool) slog.Attr              { return slog.Bool(key, value) }
func Any(key string, value any) slog.Attr                { return slog.Any(key, value) }
func Time(key string, value time.Time) slog.Attr         { return slog.Time(key, value) }
func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

// Error returns an "error" attribute. A nil error logs as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// WithCorrelationID stores id on ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// CorrelationID returns the id stored on ctx, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// ExtractCorrelationID returns the correlation id of ctx as an attribute.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationID(ctx))
}
