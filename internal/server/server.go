// Package server provides the HTTP server setup and wiring.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gaslens/gaslens/internal/config"
	"github.com/gaslens/gaslens/internal/explorer"
	"github.com/gaslens/gaslens/internal/fees"
	"github.com/gaslens/gaslens/internal/gas"
	"github.com/gaslens/gaslens/internal/middleware/logging"
	"github.com/gaslens/gaslens/internal/middleware/ratelimit"
	"github.com/gaslens/gaslens/internal/middleware/realip"
	"github.com/gaslens/gaslens/internal/middleware/security"
	"github.com/gaslens/gaslens/internal/observability/metrics"
	pathsDomain "github.com/gaslens/gaslens/internal/paths/domain"
	pathsTransport "github.com/gaslens/gaslens/internal/paths/transport"
	paymentsDomain "github.com/gaslens/gaslens/internal/payments/domain"
	paymentsTransport "github.com/gaslens/gaslens/internal/payments/transport"
	"github.com/gaslens/gaslens/internal/prices"
	"github.com/gaslens/gaslens/internal/quotes"
	"github.com/gaslens/gaslens/internal/registry"
	"github.com/gaslens/gaslens/internal/storage"
	subscriptionsDomain "github.com/gaslens/gaslens/internal/subscriptions/domain"
	subscriptionsTransport "github.com/gaslens/gaslens/internal/subscriptions/transport"
	"github.com/gaslens/gaslens/internal/upstream"
)

// Version is reported by /api/version. Set at build time.
var Version = "dev"

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server
type Server struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger
	router *chi.Mux

	limiter  ratelimit.Limiter
	throttle *ratelimit.Throttle
	gasFeed  *gas.Feed
	cors     corsPolicy
	closers  []func()

	gasSvc           gas.Reader
	feesSvc          fees.Quoter
	priceFeed        prices.Service
	quotesSvc        quotes.Quoter
	pathsSvc         pathsDomain.Service
	paymentsSvc      paymentsDomain.Service
	subscriptionsSvc subscriptionsDomain.Service
}

// New creates a new server
func New(cfg *config.Config, store storage.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
		router: chi.NewRouter(),
		cors:   newCORSPolicy(cfg.CORS.AllowedOrigins),
	}

	// Upstream clients share one fetcher so every call gets the same bounds
	fetcher := upstream.New(upstream.Config{
		Timeout:    cfg.Upstream.Timeout,
		MaxRetries: cfg.Upstream.MaxRetries,
	})
	etherscan := explorer.NewClient(cfg.Explorer.APIKey, cfg.Explorer.BaseURL, fetcher)
	priceFeed := prices.NewFeed(prices.Config{
		APIKey:           cfg.Prices.APIKey,
		BaseURL:          cfg.Prices.BaseURL,
		FallbackEthPrice: cfg.Prices.FallbackEthPrice,
		CacheTTL:         cfg.Prices.CacheTTL,
	}, fetcher, logger)

	// Create domain services
	gasSvc := gas.NewService(etherscan, logger)
	feesSvc := fees.NewService(gasSvc, priceFeed)
	quotesSvc := quotes.NewService(logger,
		quotes.NewOneInch(cfg.Quotes.OneInchAPIKey, cfg.Quotes.OneInchBaseURL, fetcher),
		quotes.NewZeroX(cfg.Quotes.ZeroXAPIKey, cfg.Quotes.ZeroXBaseURL, fetcher),
	)

	verifier := paymentsDomain.NewVerifier(etherscan, paymentsDomain.Policy{
		TreasuryAddress:  cfg.Payments.TreasuryAddress,
		MinConfirmations: cfg.Payments.MinConfirmations,
		Tolerance:        cfg.Payments.PriceTolerance,
	}, logger)
	paymentsImpl := paymentsDomain.NewService(store, verifier, priceFeed, paymentsDomain.Config{
		PlanPrices:       cfg.Payments.PlanPrices,
		WalletLimit:      cfg.Payments.WalletLimit,
		IPLimit:          cfg.Payments.IPLimit,
		AttemptWindow:    cfg.Payments.AttemptWindow,
		RequireLivePrice: cfg.Payments.RequireLivePrice,
	}, logger)

	// Wrap services with logging middleware
	s.gasSvc = gasSvc
	s.feesSvc = feesSvc
	s.priceFeed = priceFeed
	s.quotesSvc = quotesSvc
	s.pathsSvc = pathsDomain.LoggingMiddleware(logger)(pathsDomain.NewService(feesSvc))
	s.paymentsSvc = paymentsDomain.LoggingMiddleware(logger)(paymentsImpl)
	s.subscriptionsSvc = subscriptionsDomain.LoggingMiddleware(logger)(subscriptionsDomain.NewService(store))

	s.gasFeed = gas.NewFeed(gasSvc, cfg.GasFeed.Interval, logger, gas.WithOriginCheck(s.cors.checkOrigin))
	s.closers = append(s.closers, s.gasFeed.Close)
	s.limiter = s.newLimiter()

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the metrics HTTP handler for separate metrics server
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler()
}

// Run drives background work until ctx is cancelled
func (s *Server) Run(ctx context.Context) {
	s.gasFeed.Run(ctx)
}

// Close stops background loops and releases limiter connections
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newLimiter picks the counter store for the per-route policies. A redis
// store that cannot be reached at startup falls back to memory.
func (s *Server) newLimiter() ratelimit.Limiter {
	if s.cfg.RateLimit.Store == "redis" {
		rl := ratelimit.NewRedisLimiter(s.cfg.Redis.Addr, s.cfg.Redis.Password, s.cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := rl.Ping(ctx)
		if err == nil {
			s.closers = append(s.closers, func() { _ = rl.Close() })
			return rl
		}
		s.logger.Warn("redis unavailable, using in-memory rate limiter", "addr", s.cfg.Redis.Addr, "error", err)
		_ = rl.Close()
	}

	ml := ratelimit.NewMemoryLimiter()
	s.closers = append(s.closers, ml.Stop)
	return ml
}

func (s *Server) setupMiddleware() {
	// Order matters! Security middleware runs first to block malicious requests early.

	// 1. Real IP extraction (must be first to set client IP for other middleware)
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))

	// 2. Security filter (blocks malicious patterns, bypasses health checks)
	s.router.Use(security.FilterMiddleware(s.cfg.Security.FilterEnabled))

	// 3. Body size limit
	s.router.Use(security.MaxBodySizeMiddleware(s.cfg.Security.MaxBodySizeMB))

	// 4. Global per-IP throttle (bypasses health checks)
	if s.cfg.RateLimit.Enabled {
		s.throttle = ratelimit.NewThrottle(ratelimit.ThrottleConfig{
			Enabled:        true,
			RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
			BurstSize:      s.cfg.RateLimit.BurstSize,
		})
		s.closers = append(s.closers, s.throttle.Stop)
		s.router.Use(s.throttle.Middleware())
	}

	// 5. Standard middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)

	// 6. CORS
	s.router.Use(s.cors.middleware)
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	if s.cfg.Metrics.Enabled {
		s.router.Handle("/metrics", s.MetricsHandler())
	}

	// Create HTTP handlers for each domain
	gasHandler := gas.NewHandler(s.gasSvc)
	feesHandler := fees.NewHandler(s.feesSvc)
	pricesHandler := prices.NewHandler(s.priceFeed)
	quotesHandler := quotes.NewHandler(s.quotesSvc)
	pathsHandler := pathsTransport.NewHandler(s.pathsSvc)
	paymentsHandler := paymentsTransport.NewHandler(s.paymentsSvc)
	subscriptionsHandler := subscriptionsTransport.NewHandler(s.subscriptionsSvc)
	registryHandler := registry.NewHandler()

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleVersion)

		// Websocket clients are counted by the feed itself
		r.Get("/gas-price/stream", s.gasFeed.ServeHTTP)

		r.Group(func(r chi.Router) {
			s.limit(r, ratelimit.GasPricePolicy)
			gasHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			s.limit(r, ratelimit.ProtocolFeesPolicy)
			feesHandler.RegisterRoutes(r)
			pricesHandler.RegisterRoutes(r)
			pathsHandler.RegisterRoutes(r)
			quotesHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			s.limit(r, ratelimit.DefaultPolicy)
			registryHandler.RegisterRoutes(r)
			paymentsHandler.RegisterRoutes(r)
			subscriptionsHandler.RegisterRoutes(r)
			subscriptionsHandler.RegisterAdminRoutes(r, s.cfg.Admin.SecretKey)
		})
	})
}

// limit applies a per-route policy when rate limiting is enabled
func (s *Server) limit(r chi.Router, policy ratelimit.Policy) {
	if s.cfg.RateLimit.Enabled {
		r.Use(ratelimit.Middleware(s.limiter, policy, s.logger))
	}
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports unavailable until the store answers a ping
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := ping(ctx, s.store); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func ping(ctx context.Context, p Pinger) error {
	if p == nil {
		return errors.New("no store configured")
	}
	return p.Ping(ctx)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
