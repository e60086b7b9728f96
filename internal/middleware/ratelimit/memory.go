package ratelimit

import (
	"context"
	"sync"
	"time"
)

const memoryCleanupInterval = 5 * time.Minute

type windowEntry struct {
	count     int
	resetTime time.Time
}

// MemoryLimiter is an in-process fixed-window Limiter for single-instance deployments
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
	stopCh  chan struct{}
	stopped sync.Once
}

// NewMemoryLimiter creates a MemoryLimiter and starts its cleanup loop
func NewMemoryLimiter() *MemoryLimiter {
	return newMemoryLimiter(time.Now)
}

func newMemoryLimiter(now func() time.Time) *MemoryLimiter {
	l := &MemoryLimiter{
		entries: make(map[string]*windowEntry),
		now:     now,
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop(memoryCleanupInterval)
	return l
}

// Stop stops the cleanup goroutine
func (l *MemoryLimiter) Stop() {
	l.stopped.Do(func() { close(l.stopCh) })
}

// Check counts one request against the policy window for key. A limited
// request is not counted.
func (l *MemoryLimiter) Check(_ context.Context, key string, policy Policy) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := counterKey(policy, key)
	entry, ok := l.entries[k]

	if !ok || now.After(entry.resetTime) {
		entry = &windowEntry{count: 1, resetTime: now.Add(policy.Window)}
		l.entries[k] = entry
		return Result{Remaining: policy.MaxRequests - 1, ResetTime: entry.resetTime}, nil
	}

	if entry.count >= policy.MaxRequests {
		return Result{Limited: true, Remaining: 0, ResetTime: entry.resetTime}, nil
	}

	entry.count++
	return Result{Remaining: policy.MaxRequests - entry.count, ResetTime: entry.resetTime}, nil
}

func (l *MemoryLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.removeExpired()
		case <-l.stopCh:
			return
		}
	}
}

func (l *MemoryLimiter) removeExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, entry := range l.entries {
		if now.After(entry.resetTime) {
			delete(l.entries, k)
		}
	}
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
