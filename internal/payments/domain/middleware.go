package domain

import (
	"context"
	"log/slog"
	"time"
)

// loggingService is the interface required for logging middleware.
type loggingService interface {
	VerifyPayment(ctx context.Context, req VerifyRequest, clientIP string) (*Subscription, error)
}

// LoggingMiddleware returns a service middleware that logs every verification.
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

func (m *loggingMiddleware) VerifyPayment(ctx context.Context, req VerifyRequest, clientIP string) (*Subscription, error) {
	start := time.Now()
	sub, err := m.next.VerifyPayment(ctx, req, clientIP)
	m.logger.Info("VerifyPayment",
		"txHash", req.TxHash,
		"wallet", req.WalletAddress,
		"plan", req.PlanName,
		"currency", req.Currency,
		"amount", req.Amount,
		"clientIP", clientIP,
		"duration", time.Since(start),
		"error", err,
	)
	return sub, err
}
