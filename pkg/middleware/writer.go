package middleware

import (
	"net/http"

	"github.com/utafrali/product-catalog/pkg/httputil"
)

// statusRecorder captures the status code and body size written by the next
// handler. The first WriteHeader wins, a bare Write implies 200.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Flush forwards to the underlying writer when it supports flushing.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{Code: code, Message: message},
	})
}
