package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	userIDKey        contextKey = "user_id"
	loggerKey        contextKey = "logger"
)

// New creates a JSON logger on stdout tagged with the service name.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})
	return slog.New(handler).With(slog.String("service", serviceName))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the correlation ID from the context.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithUserID returns a new context with the user ID set for logging.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the user ID from context.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// NewContext returns a new context carrying l.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the request-scoped logger stored in context, or
// slog.Default() when there is none.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext returns l enriched with correlation_id, user_id, trace_id and
// span_id when the context carries them.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	var attrs []any
	if id := CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if id := UserIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("user_id", id))
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}
