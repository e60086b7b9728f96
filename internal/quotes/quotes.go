// Package quotes fetches live swap quotes from aggregator APIs and falls back
// to deterministic mock quotes when none are available.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNotConfigured is returned by a source that has no API key
var ErrNotConfigured = errors.New("quote source not configured")

// Kind tells whether a result came from live sources
type Kind string

const (
	KindLive Kind = "live"
	KindMock Kind = "mock"
)

// Quote is one aggregator's answer for a swap
type Quote struct {
	Protocol     string   `json:"protocol"`
	ProtocolID   string   `json:"protocolId"`
	FromToken    string   `json:"fromToken"`
	ToToken      string   `json:"toToken"`
	FromAmount   string   `json:"fromAmount"`
	ToAmount     string   `json:"toAmount"`
	EstimatedGas int64    `json:"estimatedGas"`
	GasPriceGwei float64  `json:"gasPriceGwei"`
	PriceImpact  float64  `json:"priceImpact"`
	Route        []string `json:"route,omitempty"`
}

// Request is a validated quote query. RawAmount is the caller's decimal
// string and is converted to base units without going through a float.
type Request struct {
	TokenIn   string
	TokenOut  string
	Amount    float64
	RawAmount string
}

// Result is the ranked quote set
type Result struct {
	Quotes    []Quote `json:"quotes"`
	BestQuote *Quote  `json:"bestQuote"`
	Timestamp int64   `json:"timestamp"`
	Kind      Kind    `json:"-"`
}

// Source is a live quote provider
type Source interface {
	Name() string
	Quote(ctx context.Context, req Request) (*Quote, error)
}

// Service fans a request out to every source
type Service struct {
	sources []Source
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a quote service over sources, queried in order
func NewService(logger *slog.Logger, sources ...Source) *Service {
	return &Service{sources: sources, logger: logger, now: time.Now}
}

// Quotes queries all sources in parallel. Sources that are unconfigured or
// fail are skipped; when none answers the mock quotes are returned instead.
// Quotes are sorted by output amount, best first.
func (s *Service) Quotes(ctx context.Context, req Request) *Result {
	answers := make([]*Quote, len(s.sources))

	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			q, err := src.Quote(ctx, req)
			switch {
			case errors.Is(err, ErrNotConfigured):
				return nil
			case err != nil:
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			answers[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("quote source failed", "error", err)
	}

	result := &Result{Quotes: []Quote{}, Kind: KindLive, Timestamp: s.now().UnixMilli()}
	for _, q := range answers {
		if q != nil {
			result.Quotes = append(result.Quotes, *q)
		}
	}
	if len(result.Quotes) == 0 {
		result.Kind = KindMock
		result.Quotes = MockQuotes(req)
	}

	sort.SliceStable(result.Quotes, func(i, j int) bool {
		return outputOf(result.Quotes[i]) > outputOf(result.Quotes[j])
	})
	best := result.Quotes[0]
	result.BestQuote = &best
	return result
}

func outputOf(q Quote) float64 {
	v, err := strconv.ParseFloat(q.ToAmount, 64)
	if err != nil {
		return 0
	}
	return v
}
