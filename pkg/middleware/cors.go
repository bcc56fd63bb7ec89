package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists exact origins. "*" allows any origin.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	// MaxAge is how long, in seconds, preflight results may be cached.
	MaxAge int
	// AllowCredentials makes the middleware echo the request origin instead
	// of "*", as browsers require.
	AllowCredentials bool
}

// DefaultCORSConfig returns a permissive development configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", CorrelationIDHeader},
		ExposedHeaders: []string{CorrelationIDHeader},
		MaxAge:         3600,
	}
}

// CORS handles Cross-Origin Resource Sharing headers and answers preflight
// requests with 204.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	def := DefaultCORSConfig()
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = def.AllowedMethods
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = def.AllowedHeaders
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}

	wildcard := false
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
		}
		origins[o] = struct{}{}
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")

			_, listed := origins[origin]
			switch {
			case wildcard && !cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && (wildcard || listed):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}

			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}
			h.Set("Access-Control-Max-Age", maxAge)
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
