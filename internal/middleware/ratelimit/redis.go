package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window Limiter whose counters live in Redis, so
// every server instance shares the same budget.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter creates a RedisLimiter
func NewRedisLimiter(addr, password string, db int) *RedisLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisLimiter{client: client}
}

// Ping checks the Redis connection
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// Check increments the window counter for key. The window starts on the
// first request and expires after policy.Window.
func (l *RedisLimiter) Check(ctx context.Context, key string, policy Policy) (Result, error) {
	k := counterKey(policy, key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("counting request: %w", err)
	}

	remainingTTL := ttl.Val()
	if remainingTTL < 0 {
		if err := l.client.PExpire(ctx, k, policy.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("setting window expiry: %w", err)
		}
		remainingTTL = policy.Window
	}

	count := int(incr.Val())
	res := Result{
		Remaining: policy.MaxRequests - count,
		ResetTime: time.Now().Add(remainingTTL),
	}
	if count > policy.MaxRequests {
		res.Limited = true
		res.Remaining = 0
	}
	return res, nil
}
