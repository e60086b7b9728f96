package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Subscriptions
	CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		tx_hash TEXT NOT NULL UNIQUE,
		chain_id INTEGER NOT NULL DEFAULT 1,
		tier TEXT NOT NULL,
		amount_usd REAL NOT NULL,
		currency TEXT NOT NULL,
		block_number INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	-- Payment attempts (append-only)
	CREATE TABLE IF NOT EXISTS payment_attempts (
		id TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		tx_hash TEXT,
		ip_address TEXT NOT NULL,
		success INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		attempted_at TEXT NOT NULL
	);

	-- Indexes
	CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_active_wallet ON subscriptions(wallet_address) WHERE is_active = 1;
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

const sqliteSubscriptionColumns = `id, wallet_address, tx_hash, chain_id, tier, amount_usd, currency, block_number, created_at, is_active`

// CreateSubscription inserts a subscription. Unique violations on the
// transaction hash or the active wallet index return ErrDuplicate.
func (s *SQLiteStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if sub.ID == "" {
		sub.ID = generateID()
	}
	if sub.CreatedAt == "" {
		sub.CreatedAt = sqliteTime(time.Now())
	}
	sub.WalletAddress = normalizeAddress(sub.WalletAddress)
	sub.TxHash = normalizeTxHash(sub.TxHash)

	query := `
		INSERT INTO subscriptions (` + sqliteSubscriptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		sub.ID, sub.WalletAddress, sub.TxHash, sub.ChainID, sub.Tier, sub.AmountUSD,
		sub.Currency, sub.BlockNumber, sub.CreatedAt, sub.IsActive,
	)
	if isSQLiteUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// GetSubscriptionByTxHash retrieves the subscription backed by a transaction
func (s *SQLiteStore) GetSubscriptionByTxHash(ctx context.Context, txHash string) (*Subscription, error) {
	query := `SELECT ` + sqliteSubscriptionColumns + ` FROM subscriptions WHERE tx_hash = ?`
	return scanSubscription(s.db.QueryRowContext(ctx, query, normalizeTxHash(txHash)))
}

// GetActiveSubscription retrieves the active subscription for a wallet
func (s *SQLiteStore) GetActiveSubscription(ctx context.Context, walletAddress string) (*Subscription, error) {
	query := `SELECT ` + sqliteSubscriptionColumns + ` FROM subscriptions WHERE wallet_address = ? AND is_active = 1`
	return scanSubscription(s.db.QueryRowContext(ctx, query, normalizeAddress(walletAddress)))
}

// ListSubscriptions lists subscriptions, newest first
func (s *SQLiteStore) ListSubscriptions(ctx context.Context, pagination PaginationParams) ([]Subscription, error) {
	query := `SELECT ` + sqliteSubscriptionColumns + ` FROM subscriptions ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
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
func (s *SQLiteStore) CountSubscriptions(ctx context.Context) (*SubscriptionStats, error) {
	var stats SubscriptionStats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0) FROM subscriptions",
	).Scan(&stats.Total, &stats.Active)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// SetSubscriptionActive flips a wallet's subscription state. Deactivation
// applies to every subscription of the wallet; activation applies to the most
// recent one. Returns the most recent subscription after the update.
func (s *SQLiteStore) SetSubscriptionActive(ctx context.Context, walletAddress string, active bool) (*Subscription, error) {
	wallet := normalizeAddress(walletAddress)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	latestQuery := `SELECT ` + sqliteSubscriptionColumns + ` FROM subscriptions WHERE wallet_address = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`
	latest, err := scanSubscription(tx.QueryRowContext(ctx, latestQuery, wallet))
	if err != nil {
		return nil, err
	}

	if active {
		_, err = tx.ExecContext(ctx, "UPDATE subscriptions SET is_active = 1 WHERE id = ?", latest.ID)
	} else {
		_, err = tx.ExecContext(ctx, "UPDATE subscriptions SET is_active = 0 WHERE wallet_address = ?", wallet)
	}
	if isSQLiteUniqueViolation(err) {
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
func (s *SQLiteStore) RecordPaymentAttempt(ctx context.Context, attempt *PaymentAttempt) error {
	if attempt.ID == "" {
		attempt.ID = generateID()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now()
	}

	query := `
		INSERT INTO payment_attempts (id, wallet_address, tx_hash, ip_address, success, error_message, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		attempt.ID, normalizeAddress(attempt.WalletAddress), normalizeTxHash(attempt.TxHash), attempt.IPAddress,
		attempt.Success, attempt.ErrorMessage, sqliteTime(attempt.AttemptedAt),
	)
	return err
}

// CountPaymentAttempts counts attempts matching the filter
func (s *SQLiteStore) CountPaymentAttempts(ctx context.Context, filter AttemptFilter) (int, error) {
	var conditions []string
	var args []any

	if filter.WalletAddress != "" {
		conditions = append(conditions, "wallet_address = ?")
		args = append(args, normalizeAddress(filter.WalletAddress))
	}
	if filter.IPAddress != "" {
		conditions = append(conditions, "ip_address = ?")
		args = append(args, filter.IPAddress)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "attempted_at >= ?")
		args = append(args, sqliteTime(filter.Since))
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.ID, &sub.WalletAddress, &sub.TxHash, &sub.ChainID, &sub.Tier, &sub.AmountUSD,
		&sub.Currency, &sub.BlockNumber, &sub.CreatedAt, &sub.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
