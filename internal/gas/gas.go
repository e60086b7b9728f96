// Package gas serves Ethereum gas prices from the Etherscan gas oracle with a
// static fallback, plus a websocket feed that pushes periodic readings.
package gas

import (
	"context"
	"log/slog"
	"time"

	"github.com/gaslens/gaslens/internal/explorer"
)

// Source tags where a reading came from
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Level thresholds in gwei
const (
	LowThreshold    = 20
	MediumThreshold = 50
)

// GasPrice holds the four speed tiers in gwei and a unix millisecond timestamp
type GasPrice struct {
	Slow      float64 `json:"slow"`
	Standard  float64 `json:"standard"`
	Fast      float64 `json:"fast"`
	Instant   float64 `json:"instant"`
	Timestamp int64   `json:"timestamp"`
}

// Reading is one gas price observation
type Reading struct {
	Source Source
	Price  GasPrice
	Err    error
}

// Live reports whether the reading came from the oracle
func (r Reading) Live() bool {
	return r.Source == SourceLive
}

// Level classifies a gas price: low below 20 gwei, medium below 50, else high
func Level(gwei float64) string {
	switch {
	case gwei < LowThreshold:
		return "low"
	case gwei < MediumThreshold:
		return "medium"
	default:
		return "high"
	}
}

// Oracle is the upstream gas price source
type Oracle interface {
	GasOracle(ctx context.Context) (*explorer.GasOracle, error)
}

// Service reads gas prices
type Service struct {
	oracle Oracle
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a gas price service
func NewService(oracle Oracle, logger *slog.Logger) *Service {
	return &Service{oracle: oracle, logger: logger, now: time.Now}
}

// Fallback returns the static gas prices used when the oracle is unavailable
func Fallback(now time.Time) GasPrice {
	return GasPrice{Slow: 25, Standard: 35, Fast: 45, Instant: 55, Timestamp: now.UnixMilli()}
}

// Current returns the latest oracle prices, or the fallback tagged as such.
// Instant is derived as fast * 1.2.
func (s *Service) Current(ctx context.Context) Reading {
	now := s.now()

	oracle, err := s.oracle.GasOracle(ctx)
	if err != nil {
		s.logger.Warn("using fallback gas prices", "error", err)
		return Reading{Source: SourceFallback, Price: Fallback(now), Err: err}
	}

	return Reading{
		Source: SourceLive,
		Price: GasPrice{
			Slow:      oracle.SafeGasPrice,
			Standard:  oracle.ProposeGasPrice,
			Fast:      oracle.FastGasPrice,
			Instant:   oracle.FastGasPrice * 1.2,
			Timestamp: now.UnixMilli(),
		},
	}
}
