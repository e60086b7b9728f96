package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gaslens/gaslens/internal/config"
)

// SubscriptionStore handles subscription records created by verified payments
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *Subscription) error
	GetSubscriptionByTxHash(ctx context.Context, txHash string) (*Subscription, error)
	GetActiveSubscription(ctx context.Context, walletAddress string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, pagination PaginationParams) ([]Subscription, error)
	CountSubscriptions(ctx context.Context) (*SubscriptionStats, error)
	SetSubscriptionActive(ctx context.Context, walletAddress string, active bool) (*Subscription, error)
}

// PaymentAttemptStore handles the append-only payment attempt log
type PaymentAttemptStore interface {
	RecordPaymentAttempt(ctx context.Context, attempt *PaymentAttempt) error
	CountPaymentAttempts(ctx context.Context, filter AttemptFilter) (int, error)
}

// Store combines all storage interfaces with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	SubscriptionStore
	PaymentAttemptStore

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
}

// Subscription is a paid tier bound to a wallet. At most one subscription per
// wallet is active, and a transaction hash can back only one subscription.
type Subscription struct {
	ID            string
	WalletAddress string
	TxHash        string
	ChainID       int64
	Tier          string
	AmountUSD     float64
	Currency      string
	BlockNumber   int64
	CreatedAt     string
	IsActive      bool
}

// SubscriptionStats summarizes the subscription table
type SubscriptionStats struct {
	Total  int
	Active int
}

// PaymentAttempt is one verification attempt, successful or not
type PaymentAttempt struct {
	ID            string
	WalletAddress string
	TxHash        string
	IPAddress     string
	Success       bool
	ErrorMessage  string
	AttemptedAt   time.Time
}

// AttemptFilter selects payment attempts for windowing.
// Empty fields are not filtered on.
type AttemptFilter struct {
	WalletAddress string
	IPAddress     string
	Since         time.Time
}

// PaginationParams contains pagination options
type PaginationParams struct {
	Limit  int
	Offset int
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
