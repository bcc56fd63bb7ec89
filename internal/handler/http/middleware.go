package http

import (
	"mime"
	"net/http"
	"strings"
)

// Form content types accepted by the product write endpoints.
const (
	contentTypeMultipart  = "multipart/form-data"
	contentTypeURLEncoded = "application/x-www-form-urlencoded"
	contentTypeJSON       = "application/json"
)

// RequireContentType rejects write requests whose Content-Type media type is
// not one of allowed with 415.
func RequireContentType(allowed ...string) func(http.Handler) http.Handler {
	message := `{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be one of: ` + strings.Join(allowed, ", ") + `"}}`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
				ok := false
				for _, a := range allowed {
					if mediaType == a {
						ok = true
						break
					}
				}
				if !ok {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnsupportedMediaType)
					_, _ = w.Write([]byte(message))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
