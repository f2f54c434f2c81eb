// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/alertwatch/internal/api/auth"
)

// jsonUnauthorized writes an unauthorized error response.
func jsonUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "UNAUTHORIZED",
			"message": "invalid or missing credentials",
		},
	})
}

// BearerAuth returns middleware enforcing the alert API's trust model:
// loopback callers pass unauthenticated, everyone else must present a
// bearer token that is either the configured static API key or a valid
// signed token.
func BearerAuth(apiKey string, tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isLoopback(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				jsonUnauthorized(w)
				return
			}
			token := parts[1]

			if apiKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			if tokens != nil {
				if _, err := tokens.ValidateToken(token); err == nil {
					next.ServeHTTP(w, r)
					return
				} else {
					log.Printf("auth failed for %s: %v", r.RemoteAddr, err)
				}
			}

			jsonUnauthorized(w)
		})
	}
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
