package domain

import (
	"context"
	"log/slog"
	"time"
)

// loggingService is the interface required for logging middleware.
type loggingService interface {
	Status(ctx context.Context, wallet string) (*Status, error)
	List(ctx context.Context, pagination PaginationParams) (*ListResult, error)
	SetActive(ctx context.Context, wallet string, active bool) (*Subscription, error)
}

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(loggingService) *loggingMiddleware {
	return func(next loggingService) *loggingMiddleware {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   loggingService
	logger *slog.Logger
}

func (m *loggingMiddleware) Status(ctx context.Context, wallet string) (*Status, error) {
	start := time.Now()
	status, err := m.next.Status(ctx, wallet)
	m.logger.Debug("Status",
		"wallet", wallet,
		"duration", time.Since(start),
		"error", err,
	)
	return status, err
}

func (m *loggingMiddleware) List(ctx context.Context, pagination PaginationParams) (*ListResult, error) {
	start := time.Now()
	result, err := m.next.List(ctx, pagination)
	m.logger.Debug("List",
		"limit", pagination.Limit,
		"offset", pagination.Offset,
		"duration", time.Since(start),
		"error", err,
	)
	return result, err
}

func (m *loggingMiddleware) SetActive(ctx context.Context, wallet string, active bool) (*Subscription, error) {
	start := time.Now()
	sub, err := m.next.SetActive(ctx, wallet, active)
	m.logger.Info("SetActive",
		"wallet", wallet,
		"active", active,
		"duration", time.Since(start),
		"error", err,
	)
	return sub, err
}
