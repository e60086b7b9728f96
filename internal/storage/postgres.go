package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	-- Subscriptions
	CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		wallet_address TEXT NOT NULL,
		tx_hash TEXT NOT NULL UNIQUE,
		chain_id BIGINT NOT NULL DEFAULT 1,
		tier TEXT NOT NULL,
		amount_usd DOUBLE PRECISION NOT NULL,
		currency TEXT NOT NULL,
		block_number BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- Payment attempts (append-only)
	CREATE TABLE IF NOT EXISTS payment_attempts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		wallet_address TEXT NOT NULL,
		tx_hash TEXT,
		ip_address TEXT NOT NULL,
		success BOOLEAN NOT NULL DEFAULT FALSE,
		error_message TEXT,
		attempted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- Indexes
	CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_active_wallet ON subscriptions(wallet_address) WHERE is_active;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_tx_hash_lower ON subscriptions(lower(tx_hash));
	CREATE INDEX IF NOT EXISTS idx_subscriptions_wallet ON subscriptions(wallet_address);
	CREATE INDEX IF NOT EXISTS idx_payment_attempts_wallet ON payment_attempts(wallet_address, attempted_at);
	CREATE INDEX IF NOT EXISTS idx_payment_attempts_ip ON payment_attempts(ip_address, attempted_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete")
	return nil
}

const pgSubscriptionColumns = `id, wallet_address, tx_hash, chain_id, tier, amount_usd, currency, block_number, created_at, is_active`

// CreateSubscription inserts a subscription. Unique violations on the
// transaction hash or the active wallet index return ErrDuplicate.
func (s *PostgresStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if sub.ID == "" {
		sub.ID = generateID()
	}
	sub.WalletAddress = normalizeAddress(sub.WalletAddress)
	sub.TxHash = normalizeTxHash(sub.TxHash)

	query := `
		INSERT INTO subscriptions (id, wallet_address, tx_hash, chain_id, tier, amount_usd, currency, block_number, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		sub.ID, sub.WalletAddress, sub.TxHash, sub.ChainID, sub.Tier, sub.AmountUSD,
		sub.Currency, sub.BlockNumber, sub.IsActive,
	).Scan(&sub.CreatedAt)
	if isPgUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// GetSubscriptionByTxHash retrieves the subscription backed by a transaction
func (s *PostgresStore) GetSubscriptionByTxHash(ctx context.Context, txHash string) (*Subscription, error) {
	query := `SELECT ` + pgSubscriptionColumns + ` FROM subscriptions WHERE tx_hash = $1`
	return scanSubscription(s.db.QueryRowContext(ctx, query, normalizeTxHash(txHash)))
}

// GetActiveSubscription retrieves the active subscription for a wallet
func (s *PostgresStore) GetActiveSubscription(ctx context.Context, walletAddress string) (*Subscription, error) {
	query := `SELECT ` + pgSubscriptionColumns + ` FROM subscriptions WHERE wallet_address = $1 AND is_active`
	return scanSubscription(s.db.QueryRowContext(ctx, query, normalizeAddress(walletAddress)))
}

// ListSubscriptions lists subscriptions, newest first
func (s *PostgresStore) ListSubscriptions(ctx context.Context, pagination PaginationParams) ([]Subscription, error) {
	query := `SELECT ` + pgSubscriptionColumns + ` FROM subscriptions ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, pagination.Limit, pagination.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// CountSubscriptions returns total and active subscription counts
func (s *PostgresStore) CountSubscriptions(ctx context.Context) (*SubscriptionStats, error) {
	var stats SubscriptionStats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM subscriptions",
	).Scan(&stats.Total, &stats.Active)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// SetSubscriptionActive flips a wallet's subscription state. Deactivation
// applies to every subscription of the wallet; activation applies to the most
// recent one. Returns the most recent subscription after the update.
func (s *PostgresStore) SetSubscriptionActive(ctx context.Context, walletAddress string, active bool) (*Subscription, error) {
	wallet := normalizeAddress(walletAddress)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	latestQuery := `SELECT ` + pgSubscriptionColumns + ` FROM subscriptions WHERE wallet_address = $1 ORDER BY created_at DESC, id LIMIT 1 FOR UPDATE`
	latest, err := scanSubscription(tx.QueryRowContext(ctx, latestQuery, wallet))
	if err != nil {
		return nil, err
	}

	if active {
		_, err = tx.ExecContext(ctx, "UPDATE subscriptions SET is_active = TRUE WHERE id = $1", latest.ID)
	} else {
		_, err = tx.ExecContext(ctx, "UPDATE subscriptions SET is_active = FALSE WHERE wallet_address = $1", wallet)
	}
	if isPgUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	latest.IsActive = active
	return latest, nil
}

// RecordPaymentAttempt appends a payment attempt
func (s *PostgresStore) RecordPaymentAttempt(ctx context.Context, attempt *PaymentAttempt) error {
	if attempt.ID == "" {
		attempt.ID = generateID()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now()
	}

	query := `
		INSERT INTO payment_attempts (id, wallet_address, tx_hash, ip_address, success, error_message, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		attempt.ID, normalizeAddress(attempt.WalletAddress), normalizeTxHash(attempt.TxHash), attempt.IPAddress,
		attempt.Success, attempt.ErrorMessage, attempt.AttemptedAt.UTC(),
	)
	return err
}

// CountPaymentAttempts counts attempts matching the filter
func (s *PostgresStore) CountPaymentAttempts(ctx context.Context, filter AttemptFilter) (int, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if filter.WalletAddress != "" {
		conditions = append(conditions, fmt.Sprintf("wallet_address = $%d", argIdx))
		args = append(args, normalizeAddress(filter.WalletAddress))
		argIdx++
	}
	if filter.IPAddress != "" {
		conditions = append(conditions, fmt.Sprintf("ip_address = $%d", argIdx))
		args = append(args, filter.IPAddress)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("attempted_at >= $%d", argIdx))
		args = append(args, filter.Since.UTC())
	}

	query := "SELECT COUNT(*) FROM payment_attempts"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
