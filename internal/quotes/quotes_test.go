package quotes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaslens/gaslens/internal/registry"
	"github.com/gaslens/gaslens/internal/upstream"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubSource struct {
	name  string
	quote *Quote
	err   error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Quote(ctx context.Context, req Request) (*Quote, error) {
	return s.quote, s.err
}

func ethUSDC(amount string, v float64) Request {
	return Request{TokenIn: "ETH", TokenOut: "USDC", Amount: v, RawAmount: amount}
}

func TestService_MockFallback(t *testing.T) {
	svc := NewService(discardLogger,
		stubSource{name: "1inch", err: ErrNotConfigured},
		stubSource{name: "0x", err: errors.New("upstream down")},
	)

	result := svc.Quotes(context.Background(), ethUSDC("1", 1))
	assert.Equal(t, KindMock, result.Kind)
	require.Len(t, result.Quotes, 2)
	assert.Equal(t, "1inch", result.Quotes[0].ProtocolID)
	assert.Equal(t, "0x", result.Quotes[1].ProtocolID)
	assert.Equal(t, "1994.000000", result.Quotes[0].ToAmount)
	assert.Equal(t, int64(150000), result.Quotes[0].EstimatedGas)
	assert.Zero(t, result.Quotes[0].PriceImpact)
	require.NotNil(t, result.BestQuote)
	assert.Equal(t, "1inch", result.BestQuote.ProtocolID)
	assert.NotZero(t, result.Timestamp)
}

func TestService_NoSources(t *testing.T) {
	result := NewService(discardLogger).Quotes(context.Background(), ethUSDC("1", 1))
	assert.Equal(t, KindMock, result.Kind)
	assert.Len(t, result.Quotes, 2)
}

func TestService_LiveSortedByOutput(t *testing.T) {
	svc := NewService(discardLogger,
		stubSource{name: "1inch", quote: &Quote{ProtocolID: "1inch", ToAmount: "1990.000000"}},
		stubSource{name: "0x", quote: &Quote{ProtocolID: "0x", ToAmount: "1995.500000"}},
	)

	result := svc.Quotes(context.Background(), ethUSDC("1", 1))
	assert.Equal(t, KindLive, result.Kind)
	require.Len(t, result.Quotes, 2)
	assert.Equal(t, "0x", result.Quotes[0].ProtocolID)
	assert.Equal(t, "0x", result.BestQuote.ProtocolID)
}

func TestService_PartialLive(t *testing.T) {
	svc := NewService(discardLogger,
		stubSource{name: "1inch", err: errors.New("timeout")},
		stubSource{name: "0x", quote: &Quote{ProtocolID: "0x", ToAmount: "1.000000"}},
	)

	result := svc.Quotes(context.Background(), ethUSDC("1", 1))
	assert.Equal(t, KindLive, result.Kind)
	require.Len(t, result.Quotes, 1)
	assert.Equal(t, "0x", result.Quotes[0].ProtocolID)
}

func TestService_LogsFailedSource(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	svc := NewService(logger,
		stubSource{name: "1inch", err: ErrNotConfigured},
		stubSource{name: "0x", err: errors.New("status 502")},
	)
	svc.Quotes(context.Background(), ethUSDC("1", 1))

	assert.Contains(t, logs.String(), "quote source failed")
	assert.Contains(t, logs.String(), "0x: status 502")
	assert.NotContains(t, logs.String(), "1inch")
}

func TestService_QuietWhenUnconfigured(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	svc := NewService(logger, stubSource{name: "1inch", err: ErrNotConfigured})
	result := svc.Quotes(context.Background(), ethUSDC("1", 1))

	assert.Equal(t, KindMock, result.Kind)
	assert.Empty(t, logs.String())
}

func TestMockQuotes(t *testing.T) {
	tests := []struct {
		in, out string
		amount  float64
		want    string
	}{
		{"eth", "usdc", 1, "1994.000000"},
		{"ETH", "DAI", 0.5, "997.000000"},
		{"WBTC", "ETH", 1, "20.937000"},
		{"FOO", "BAR", 2, "1.994000"},
	}
	for _, tt := range tests {
		t.Run(tt.in+"-"+tt.out, func(t *testing.T) {
			quotes := MockQuotes(Request{TokenIn: tt.in, TokenOut: tt.out, Amount: tt.amount})
			require.Len(t, quotes, 2)
			for _, q := range quotes {
				assert.Equal(t, tt.want, q.ToAmount)
				assert.Equal(t, []string{q.Protocol}, q.Route)
			}
			assert.Equal(t, "0x (Matcha)", quotes[1].Protocol)
		})
	}
}

func newFetcher() *upstream.Fetcher {
	return upstream.New(upstream.Config{Timeout: time.Second})
}

func TestOneInch_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "Bearer inch-key", r.Header.Get("Authorization"))
		assert.Equal(t, registry.ETHAddress, r.URL.Query().Get("src"))
		assert.Equal(t, registry.USDCAddress, r.URL.Query().Get("dst"))
		assert.Equal(t, "1500000000000000000", r.URL.Query().Get("amount"))
		w.Write([]byte(`{
			"toAmount": "2991750000000000000000",
			"gas": 180000,
			"protocols": [[[{"name": "UNISWAP_V3", "part": 100}], [{"name": "CURVE", "part": 100}]]]
		}`))
	}))
	defer srv.Close()

	src := NewOneInch("inch-key", srv.URL, newFetcher())
	q, err := src.Quote(context.Background(), ethUSDC("1.5", 1.5))
	require.NoError(t, err)

	assert.Equal(t, "1inch", q.Protocol)
	assert.Equal(t, "1.5", q.FromAmount)
	assert.Equal(t, "2991.750000", q.ToAmount)
	assert.Equal(t, int64(180000), q.EstimatedGas)
	assert.Equal(t, 35.0, q.GasPriceGwei)
	assert.Equal(t, []string{"UNISWAP_V3", "CURVE"}, q.Route)
}

func TestOneInch_NotConfigured(t *testing.T) {
	_, err := NewOneInch("", "http://unused", newFetcher()).Quote(context.Background(), ethUSDC("1", 1))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOneInch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewOneInch("bad", srv.URL, newFetcher()).Quote(context.Background(), ethUSDC("1", 1))
	var statusErr *upstream.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestZeroX_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "zx-key", r.Header.Get("0x-api-key"))
		assert.Equal(t, registry.ETHAddress, r.URL.Query().Get("sellToken"))
		assert.Equal(t, registry.USDCAddress, r.URL.Query().Get("buyToken"))
		assert.Equal(t, "1000000000000000000", r.URL.Query().Get("sellAmount"))
		w.Write([]byte(`{
			"buyAmount": "1995000000000000000000",
			"estimatedGas": "140000",
			"gasPrice": "30000000000",
			"estimatedPriceImpact": "0.12",
			"sources": [
				{"name": "Uniswap_V3", "proportion": "0.6"},
				{"name": "Curve", "proportion": "0.4"},
				{"name": "Balancer", "proportion": "0"}
			]
		}`))
	}))
	defer srv.Close()

	q, err := NewZeroX("zx-key", srv.URL, newFetcher()).Quote(context.Background(), ethUSDC("1", 1))
	require.NoError(t, err)

	assert.Equal(t, "0x (Matcha)", q.Protocol)
	assert.Equal(t, "0x", q.ProtocolID)
	assert.Equal(t, "1995.000000", q.ToAmount)
	assert.Equal(t, int64(140000), q.EstimatedGas)
	assert.InDelta(t, 30.0, q.GasPriceGwei, 1e-9)
	assert.InDelta(t, 0.12, q.PriceImpact, 1e-9)
	assert.Equal(t, []string{"Uniswap_V3", "Curve"}, q.Route)
}

func TestZeroX_Defaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"buyAmount": "5000000000000000000"}`))
	}))
	defer srv.Close()

	q, err := NewZeroX("k", srv.URL, newFetcher()).Quote(context.Background(), ethUSDC("1", 1))
	require.NoError(t, err)
	assert.Equal(t, "5.000000", q.ToAmount)
	assert.Equal(t, int64(150000), q.EstimatedGas)
	assert.Equal(t, 35.0, q.GasPriceGwei)
	assert.Empty(t, q.Route)
}

func TestZeroX_MissingBuyAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewZeroX("k", srv.URL, newFetcher()).Quote(context.Background(), ethUSDC("1", 1))
	assert.Error(t, err)
}

func TestService_LiveSourcesEndToEnd(t *testing.T) {
	inch := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"toAmount": "1990000000000000000000", "gas": 150000}`))
	}))
	defer inch.Close()
	zx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"buyAmount": "1996000000000000000000"}`))
	}))
	defer zx.Close()

	svc := NewService(discardLogger,
		NewOneInch("a", inch.URL, newFetcher()),
		NewZeroX("b", zx.URL, newFetcher()),
	)
	result := svc.Quotes(context.Background(), ethUSDC("1", 1))
	assert.Equal(t, KindLive, result.Kind)
	require.Len(t, result.Quotes, 2)
	assert.Equal(t, "0x", result.BestQuote.ProtocolID)
	assert.Equal(t, "1996.000000", result.BestQuote.ToAmount)
}
