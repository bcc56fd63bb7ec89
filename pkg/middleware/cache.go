package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// CacheControl marks successful GET responses as cacheable by shared caches
// for maxAge. Other methods are marked no-store.
func CacheControl(maxAge time.Duration) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				w.Header().Set("Cache-Control", value)
			} else {
				w.Header().Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}
