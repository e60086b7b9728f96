// Package prices is the CoinGecko-backed price feed. Results are tagged with
// their source so callers can tell a live quote from a fallback value.
package prices

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gaslens/gaslens/internal/upstream"
)

const source = "coingecko"

var errMissingPrice = errors.New("price missing from response")

// Source tags where a price came from
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// PriceQuote is the ETH/USD spot price
type PriceQuote struct {
	Source Source  `json:"source"`
	USD    float64 `json:"usd"`
	// Err is the upstream failure behind a fallback quote
	Err error `json:"-"`
}

// Live reports whether the quote came from the upstream feed
func (q PriceQuote) Live() bool {
	return q.Source == SourceLive
}

// TokenPrice is one entry of a multi-token lookup
type TokenPrice struct {
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
}

// TokenPrices is the result of a multi-token lookup
type TokenPrices struct {
	Source Source
	Prices map[string]TokenPrice
	Err    error
}

// Config holds price feed settings
type Config struct {
	APIKey           string
	BaseURL          string
	FallbackEthPrice float64
	CacheTTL         time.Duration
}

var mockPrices = map[string]TokenPrice{
	"ethereum":        {USD: 2000, Change24h: 2.5},
	"usd-coin":        {USD: 1.0, Change24h: 0.01},
	"tether":          {USD: 1.0, Change24h: -0.01},
	"dai":             {USD: 1.0, Change24h: 0},
	"wrapped-bitcoin": {USD: 42000, Change24h: 1.8},
	"bitcoin":         {USD: 42000, Change24h: 1.8},
	"matic-network":   {USD: 0.85, Change24h: 1.2},
	"chainlink":       {USD: 14.5, Change24h: 0.8},
	"uniswap":         {USD: 6.2, Change24h: -0.5},
	"aave":            {USD: 95, Change24h: 1.1},
}

// MockPrices returns the static fallback table for ids. Unknown ids price at 1.0.
func MockPrices(ids []string) map[string]TokenPrice {
	out := make(map[string]TokenPrice, len(ids))
	for _, id := range ids {
		if p, ok := mockPrices[id]; ok {
			out[id] = p
			continue
		}
		out[id] = TokenPrice{USD: 1.0}
	}
	return out
}

type cachedPrice struct {
	usd       float64
	expiresAt time.Time
}

// Feed fetches spot prices
type Feed struct {
	cfg     Config
	fetcher *upstream.Fetcher
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	cached *cachedPrice
}

// NewFeed creates a price feed. A non-positive fallback price defaults to 2000.
func NewFeed(cfg Config, fetcher *upstream.Fetcher, logger *slog.Logger) *Feed {
	if cfg.FallbackEthPrice <= 0 {
		cfg.FallbackEthPrice = 2000
	}
	return &Feed{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// EthPrice returns the ETH/USD price. Live prices are cached for the
// configured TTL; any failure yields the fallback price tagged as such.
func (f *Feed) EthPrice(ctx context.Context) PriceQuote {
	if usd, ok := f.cachedEthPrice(); ok {
		return PriceQuote{Source: SourceLive, USD: usd}
	}

	prices, err := f.fetch(ctx, []string{"ethereum"}, false)
	if err == nil {
		if p, ok := prices["ethereum"]; ok && p.USD > 0 {
			f.storeEthPrice(p.USD)
			return PriceQuote{Source: SourceLive, USD: p.USD}
		}
		err = errMissingPrice
	}

	f.logger.Warn("using fallback ETH price", "price", f.cfg.FallbackEthPrice, "error", err)
	return PriceQuote{Source: SourceFallback, USD: f.cfg.FallbackEthPrice, Err: err}
}

// TokenPrices looks up USD prices with 24h change for CoinGecko ids. On
// failure the mock table is returned tagged as fallback.
func (f *Feed) TokenPrices(ctx context.Context, ids []string) TokenPrices {
	prices, err := f.fetch(ctx, ids, true)
	if err != nil {
		f.logger.Warn("using mock token prices", "ids", len(ids), "error", err)
		return TokenPrices{Source: SourceFallback, Prices: MockPrices(ids), Err: err}
	}
	return TokenPrices{Source: SourceLive, Prices: prices}
}

func (f *Feed) fetch(ctx context.Context, ids []string, withChange bool) (map[string]TokenPrice, error) {
	params := url.Values{
		"ids":           {strings.Join(ids, ",")},
		"vs_currencies": {"usd"},
	}
	if withChange {
		params.Set("include_24hr_change", "true")
	}

	headers := map[string]string{}
	if f.cfg.APIKey != "" {
		headers["x-cg-pro-api-key"] = f.cfg.APIKey
	}

	var prices map[string]TokenPrice
	err := f.fetcher.GetJSON(ctx, upstream.Request{
		Source:  source,
		URL:     strings.TrimSuffix(f.cfg.BaseURL, "/") + "/simple/price?" + params.Encode(),
		Headers: headers,
		Retry:   true,
	}, &prices)
	if err != nil {
		return nil, err
	}
	if prices == nil {
		return nil, errMissingPrice
	}
	return prices, nil
}

func (f *Feed) cachedEthPrice() (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.cached == nil || !f.now().Before(f.cached.expiresAt) {
		return 0, false
	}
	return f.cached.usd, true
}

func (f *Feed) storeEthPrice(usd float64) {
	if f.cfg.CacheTTL <= 0 {
		return
	}
	f.mu.Lock()
	f.cached = &cachedPrice{usd: usd, expiresAt: f.now().Add(f.cfg.CacheTTL)}
	f.mu.Unlock()
}
