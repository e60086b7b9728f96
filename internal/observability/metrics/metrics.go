// Package metrics provides Prometheus instrumentation for GasLens.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string
	initOnce    sync.Once

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Payment domain metrics
	paymentVerificationTotal *prometheus.CounterVec
	subscriptionChangeTotal  *prometheus.CounterVec

	// Upstream API metrics
	upstreamFetchTotal    *prometheus.CounterVec
	upstreamFetchDuration *prometheus.HistogramVec

	// Rate limiting
	rateLimitedTotal *prometheus.CounterVec

	// Comparison metrics
	swapPathsBuilt prometheus.Histogram

	// Gas feed
	gasFeedClients prometheus.Gauge
)

// Init initializes the metrics system. Collectors are registered once per
// process; later calls only update the service name.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	initOnce.Do(register)
}

func register() {
	// HTTP request counter
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	paymentVerificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verification_total",
			Help: "Total number of payment verification attempts",
		},
		[]string{"currency", "result"},
	)

	subscriptionChangeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_change_total",
			Help: "Total number of admin subscription state changes",
		},
		[]string{"action", "status"},
	)

	upstreamFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_fetch_total",
			Help: "Total number of third-party API calls",
		},
		[]string{"source", "result"},
	)

	upstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_fetch_duration_seconds",
			Help:    "Third-party API latency in seconds, retries included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of requests rejected by a rate limit policy",
		},
		[]string{"policy"},
	)

	swapPathsBuilt = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swap_paths_built",
			Help:    "Number of swap paths returned per comparison",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7},
		},
	)

	gasFeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gas_feed_clients",
			Help: "Number of connected gas feed websocket clients",
		},
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
