package middleware

import (
	"context"
	"net/http"
	"time"
)

// WithTimeout bounds every request's context so that storage-backed
// handlers give up instead of holding a connection indefinitely.
func WithTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
