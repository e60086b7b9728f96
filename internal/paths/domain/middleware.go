package domain

import (
	"context"
	"log/slog"
	"time"
)

type loggingService interface {
	Compare(ctx context.Context, req CompareRequest) (*Comparison, error)
}

// LoggingMiddleware returns a service middleware that logs comparisons.
func LoggingMiddleware(logger *slog.Logger) func(loggingService) *loggingMiddleware {
	return func(next loggingService) *loggingMiddleware {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

type loggingMiddleware struct {
	next   loggingService
	logger *slog.Logger
}

func (m *loggingMiddleware) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	start := time.Now()
	result, err := m.next.Compare(ctx, req)
	attrs := []any{
		"tokenIn", req.TokenIn,
		"tokenOut", req.TokenOut,
		"amountIn", req.AmountIn,
		"aggregators", req.IncludeAggregators,
		"duration", time.Since(start),
		"error", err,
	}
	if result != nil {
		attrs = append(attrs, "paths", len(result.Paths), "ethPriceSource", result.EthPrice.Source)
	}
	m.logger.Debug("Compare", attrs...)
	return result, err
}
