package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusWriter captures the status code and byte count of a response
// so the access log can report them after the handler returns.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.size += n
	return n, err
}

// RequestLogger tags each request with a short ID (echoed in the
// X-Request-ID header) and writes an access log line. Without verbose
// only error responses are logged.
func RequestLogger(verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.New().String()[:8]
			w.Header().Set("X-Request-ID", requestID)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			if verbose || sw.status >= 400 {
				log.Printf("[%s] %s %s %s %d %dB %v",
					requestID,
					r.RemoteAddr,
					r.Method,
					r.URL.Path,
					sw.status,
					sw.size,
					time.Since(start).Round(time.Microsecond),
				)
			}
		})
	}
}
