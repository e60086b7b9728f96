// Package ratelimit provides request rate limiting: fixed-window policies
// backed by a swappable counter store, and a global per-IP token bucket.
package ratelimit

import (
	"context"
	"time"
)

// Policy is a fixed-window request budget
type Policy struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// Result is the outcome of one Check
type Result struct {
	Limited   bool
	Remaining int
	ResetTime time.Time
}

// Limiter counts requests per key within a policy window
type Limiter interface {
	Check(ctx context.Context, key string, policy Policy) (Result, error)
}

// Built-in policies
var (
	// GasPricePolicy guards endpoints that call the gas oracle
	GasPricePolicy = Policy{Name: "gasPrice", MaxRequests: 30, Window: time.Minute}
	// ProtocolFeesPolicy guards locally computed fee endpoints
	ProtocolFeesPolicy = Policy{Name: "protocolFees", MaxRequests: 60, Window: time.Minute}
	DefaultPolicy      = Policy{Name: "default", MaxRequests: 60, Window: time.Minute}
)

func counterKey(policy Policy, key string) string {
	return "ratelimit:" + policy.Name + ":" + key
}
