// Package security provides request filtering middleware.
package security

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Config holds the configuration for security middleware
type Config struct {
	// FilterEnabled enables the request filter
	FilterEnabled bool
	// MaxBodySizeMB is the maximum request body size in megabytes
	MaxBodySizeMB int
}

// healthCheckPaths are exempt from filtering
var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
}

// blockedPathPrefixes mark scanner traffic. The API lives under /api, so
// anything probing for CMS or server internals is rejected early.
var blockedPathPrefixes = []string{
	"/.php",
	"/wp-",
	"/.git/",
	"/.env",
	"/web-inf/",
	"/cgi-bin/",
	"/admin/",
	"/phpmyadmin",
	"/phpinfo",
	"/shell",
	"/config.",
	"/.htaccess",
	"/.htpasswd",
	"/server-status",
	"/xmlrpc.php",
	"/vendor/",
	"/actuator",
}

// blockedPatterns are rejected anywhere in the path or the query string
var blockedPatterns = []string{
	"../",
	"..\\",
	"..%2f",
	"..%5c",
	"%2e%2e/",
	"%00",
	"\x00",
	"<script",
	"javascript:",
}

// FilterMiddleware rejects requests that look like probes or injection
// attempts in the path or the query string.
func FilterMiddleware(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if healthCheckPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if isBlocked(r.URL) {
				writeBlockedResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isBlocked(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, prefix := range blockedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	raw := u.RawPath
	if raw == "" {
		raw = u.Path
	}
	candidates := []string{path, strings.ToLower(raw), strings.ToLower(u.RawQuery)}

	// Decode once more to catch double encoding
	if decoded, err := url.PathUnescape(raw); err == nil {
		candidates = append(candidates, strings.ToLower(decoded))
	}
	if decoded, err := url.QueryUnescape(u.RawQuery); err == nil {
		candidates = append(candidates, strings.ToLower(decoded))
	}

	for _, c := range candidates {
		for _, pattern := range blockedPatterns {
			if strings.Contains(c, pattern) {
				return true
			}
		}
	}
	return false
}

// writeBlockedResponse writes a generic 400 without revealing what matched
func writeBlockedResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    "INVALID_REQUEST",
			"message": "Invalid request",
		},
	})
}
