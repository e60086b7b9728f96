package quotes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuoter struct {
	got    Request
	result *Result
}

func (s *stubQuoter) Quotes(ctx context.Context, req Request) *Result {
	s.got = req
	return s.result
}

func serve(t *testing.T, svc Quoter, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandler_SwapQuote(t *testing.T) {
	quotes := MockQuotes(Request{TokenIn: "ETH", TokenOut: "USDC", Amount: 2})
	svc := &stubQuoter{result: &Result{Quotes: quotes, BestQuote: &quotes[0], Timestamp: 42, Kind: KindMock}}

	w := serve(t, svc, "/swap-quote?tokenIn=ETH&tokenOut=USDC&amount=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, s-maxage=10, stale-while-revalidate=5", w.Header().Get("Cache-Control"))
	assert.Equal(t, 2.0, svc.got.Amount)
	assert.Equal(t, "2", svc.got.RawAmount)

	var resp struct {
		Data    Result `json:"data"`
		Success bool   `json:"success"`
		Source  string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "mock", resp.Source)
	assert.Len(t, resp.Data.Quotes, 2)
	require.NotNil(t, resp.Data.BestQuote)
	assert.Equal(t, "3988.000000", resp.Data.BestQuote.ToAmount)
	assert.Equal(t, int64(42), resp.Data.Timestamp)
}

func TestHandler_SwapQuoteValidation(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing tokenIn", "tokenOut=USDC&amount=1"},
		{"token too long", "tokenIn=0x00000000000000000000000000000000000000001&tokenOut=USDC&amount=1"},
		{"missing amount", "tokenIn=ETH&tokenOut=USDC"},
		{"negative amount", "tokenIn=ETH&tokenOut=USDC&amount=-1"},
		{"exponent amount", "tokenIn=ETH&tokenOut=USDC&amount=1e3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, &stubQuoter{}, "/swap-quote?"+tt.query)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"INVALID_REQUEST"`)
		})
	}
}
