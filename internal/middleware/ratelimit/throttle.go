package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaslens/gaslens/internal/middleware/realip"
	"github.com/gaslens/gaslens/internal/observability/metrics"
)

// ThrottleConfig configures the global per-IP token bucket
type ThrottleConfig struct {
	Enabled bool
	// RequestsPerMin is the sustained rate allowed per IP
	RequestsPerMin int
	// BurstSize is the bucket size
	BurstSize int
	// IdleTTL is how long an idle IP bucket is kept
	IdleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a coarse per-IP token bucket applied to every non-health route,
// in front of the per-route fixed-window policies.
type Throttle struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	stopCh  chan struct{}
	stopped sync.Once
}

// NewThrottle creates a Throttle and starts its cleanup loop
func NewThrottle(cfg ThrottleConfig) *Throttle {
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = 10 * time.Minute
	}

	t := &Throttle{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(float64(cfg.RequestsPerMin) / 60.0),
		burst:   cfg.BurstSize,
		idleTTL: idle,
		stopCh:  make(chan struct{}),
	}
	go t.cleanupLoop()
	return t
}

// Stop stops the cleanup goroutine
func (t *Throttle) Stop() {
	t.stopped.Do(func() { close(t.stopCh) })
}

func (t *Throttle) cleanupLoop() {
	ticker := time.NewTicker(t.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.evictIdle()
		case <-t.stopCh:
			return
		}
	}
}

func (t *Throttle) evictIdle() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.idleTTL)
	for ip, b := range t.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(t.buckets, ip)
		}
	}
}

// allow takes one token from ip's bucket
func (t *Throttle) allow(ip string) bool {
	t.mu.Lock()
	b, ok := t.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.buckets[ip] = b
	}
	b.lastSeen = time.Now()
	t.mu.Unlock()

	return b.limiter.Allow()
}

// healthCheckPaths are exempt from throttling
var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
}

// Middleware throttles requests per client IP
func (t *Throttle) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if healthCheckPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if !t.allow(realip.GetClientIP(r)) {
				metrics.RateLimited("global")
				writeLimited(w, 60)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
