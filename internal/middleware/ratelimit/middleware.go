package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gaslens/gaslens/internal/middleware/realip"
	"github.com/gaslens/gaslens/internal/observability/metrics"
)

// Middleware enforces policy per client IP using limiter. Allowed responses
// carry X-RateLimit-* headers. Limiter failures are logged and the request
// is let through.
func Middleware(limiter Limiter, policy Policy, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := realip.GetClientIP(r)

			res, err := limiter.Check(r.Context(), clientIP, policy)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					"policy", policy.Name,
					"client_ip", clientIP,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(policy.MaxRequests))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime.Unix(), 10))

			if res.Limited {
				metrics.RateLimited(policy.Name)
				h.Set("X-RateLimit-Remaining", "0")
				writeLimited(w, retryAfter(res.ResetTime))
				return
			}

			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter returns whole seconds until reset, at least 1
func retryAfter(reset time.Time) int {
	secs := int(math.Ceil(time.Until(reset).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func writeLimited(w http.ResponseWriter, retryAfterSecs int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    "RATE_LIMIT_EXCEEDED",
			"message": "Too many requests. Please try again later.",
		},
	})
}
