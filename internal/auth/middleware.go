// Package auth guards admin routes with a shared bearer secret.
package auth

import (
	"net/http"
	"strings"
)

// ErrorWriter renders an error response
type ErrorWriter func(w http.ResponseWriter, status int, code, message string)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns "" when the header is missing or malformed.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AdminMiddleware returns an HTTP middleware that admits only requests
// carrying secret as a bearer token. When secret is empty every request is
// rejected.
func AdminMiddleware(secret string, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Admin access is not configured")
				return
			}

			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required")
				return
			}

			if !SecretsMatch(token, secret) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid admin credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
