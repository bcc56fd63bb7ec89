package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/product-catalog/pkg/logger"
)

// CorrelationIDHeader carries the request correlation id in both directions.
const CorrelationIDHeader = "X-Correlation-ID"

// quietPrefixes are probe and scrape paths logged at debug level.
var quietPrefixes = []string{"/health/", "/metrics"}

// RequestLogging assigns a correlation ID to every request and logs the
// request once it completes.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get(CorrelationIDHeader)
			if correlationID == "" {
				correlationID = uuid.NewString()
			}
			ctx := logger.WithCorrelationID(r.Context(), correlationID)
			r = r.WithContext(ctx)
			w.Header().Set(CorrelationIDHeader, correlationID)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case isQuietPath(r.URL.Path):
				level = slog.LevelDebug
			}

			l.Log(ctx, level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", rec.bytes),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", correlationID),
			)
		})
	}
}

func isQuietPath(path string) bool {
	for _, p := range quietPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
