package server

import (
	"net/http"
	"slices"
	"strings"
)

// corsPolicy is the set of browser origins allowed to use the API
type corsPolicy struct {
	origins []string
}

func newCORSPolicy(origins []string) corsPolicy {
	normalized := make([]string, 0, len(origins))
	for _, o := range origins {
		normalized = append(normalized, strings.TrimRight(strings.ToLower(o), "/"))
	}
	return corsPolicy{origins: normalized}
}

func (p corsPolicy) any() bool {
	return slices.Contains(p.origins, "*")
}

func (p corsPolicy) allowed(origin string) bool {
	return p.any() || slices.Contains(p.origins, strings.ToLower(origin))
}

// checkOrigin decides websocket upgrades. Requests without an Origin header
// come from non-browser clients and are accepted.
func (p corsPolicy) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || p.allowed(origin)
}

// middleware sets CORS headers for allowed origins. Preflight requests are
// answered directly.
func (p corsPolicy) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		origin := r.Header.Get("Origin")
		switch {
		case p.any():
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && p.allowed(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		default:
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
