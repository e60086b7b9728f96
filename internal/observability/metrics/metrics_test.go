package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestRouteLabel(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			got = routeLabel(req)
		})
	})
	r.Get("/api/gas-price", func(w http.ResponseWriter, req *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/gas-price?x=1", nil))
	assert.Equal(t, "/api/gas-price", got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/0xabc", nil))
	assert.Equal(t, "unmatched", got)
}

func TestDisabledHelpersAreNoops(t *testing.T) {
	Init(false, "gaslens-test")

	assert.False(t, Enabled())
	assert.Equal(t, "gaslens-test", ServiceName())

	// Collectors are nil while disabled; the helpers must not touch them.
	PaymentVerification("ETH", "success")
	UpstreamFetch("etherscan", "ok", 0)
	RateLimited("gasPrice")
	SwapPathsBuilt(3)
	GasFeedClients(1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
