// Package domain verifies on-chain subscription payments and records the
// resulting subscriptions.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gaslens/gaslens/internal/observability/metrics"
	"github.com/gaslens/gaslens/internal/prices"
	"github.com/gaslens/gaslens/internal/storage"
	"github.com/gaslens/gaslens/internal/validation"
)

// Errors returned by VerifyPayment. The text after the sentinel's own message
// is safe to show to the payer; see Message.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrVerificationFailed = errors.New("verification failed")
	ErrSenderMismatch     = errors.New("sender mismatch")
	ErrTxAlreadyUsed      = errors.New("transaction already used")
	ErrAlreadySubscribed  = errors.New("already subscribed")
	ErrRateLimited        = errors.New("too many payment attempts")
)

// Message returns the payer-facing part of a VerifyPayment error
func Message(err error) string {
	for _, sentinel := range []error{
		ErrInvalidRequest, ErrVerificationFailed, ErrSenderMismatch,
		ErrTxAlreadyUsed, ErrAlreadySubscribed, ErrRateLimited,
	} {
		if errors.Is(err, sentinel) {
			return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
		}
	}
	return "Failed to verify payment"
}

// RetryError is a rejection the payer can retry once After has passed
type RetryError struct {
	Err   error
	After time.Duration
}

func (e *RetryError) Error() string { return e.Err.Error() }

func (e *RetryError) Unwrap() error { return e.Err }

// RetryAfter returns how long the payer should wait before retrying, if err
// says so
func RetryAfter(err error) (time.Duration, bool) {
	var retry *RetryError
	if errors.As(err, &retry) {
		return retry.After, true
	}
	return 0, false
}

// Currencies accepted for payment
const (
	CurrencyETH  = "ETH"
	CurrencyUSDC = "USDC"
)

// mainnet is the only chain payments are accepted on
const mainnet = 1

// Store defines the storage operations needed by the payments domain.
type Store interface {
	GetSubscriptionByTxHash(ctx context.Context, txHash string) (*storage.Subscription, error)
	GetActiveSubscription(ctx context.Context, walletAddress string) (*storage.Subscription, error)
	CreateSubscription(ctx context.Context, sub *storage.Subscription) error
	RecordPaymentAttempt(ctx context.Context, attempt *storage.PaymentAttempt) error
	CountPaymentAttempts(ctx context.Context, filter storage.AttemptFilter) (int, error)
}

// PaymentVerifier checks transactions on-chain
type PaymentVerifier interface {
	VerifyEth(ctx context.Context, txHash string, expectedUSD, ethPriceUSD float64) Verification
	VerifyUsdc(ctx context.Context, txHash string, expectedUSD float64) Verification
}

// PriceReader supplies the ETH/USD price used to value ETH payments
type PriceReader interface {
	EthPrice(ctx context.Context) prices.PriceQuote
}

// Service verifies payments and creates subscriptions.
type Service interface {
	VerifyPayment(ctx context.Context, req VerifyRequest, clientIP string) (*Subscription, error)
}

// Config is the payment acceptance policy applied around verification
type Config struct {
	// PlanPrices maps plan name to its minimum accepted USD amount
	PlanPrices    map[string]float64
	WalletLimit   int
	IPLimit       int
	AttemptWindow time.Duration
	// RequireLivePrice rejects ETH payments while the price feed is on its fallback
	RequireLivePrice bool
}

// VerifyRequest is a payer's claim that txHash pays for planName
type VerifyRequest struct {
	TxHash        string
	WalletAddress string
	PlanName      string
	Amount        float64
	Currency      string
}

// Subscription is a subscription created by a verified payment
type Subscription struct {
	ID            string
	WalletAddress string
	TxHash        string
	Tier          string
	AmountUSD     float64
	Currency      string
	BlockNumber   int64
	CreatedAt     string
	IsActive      bool
}

type service struct {
	store    Store
	verifier PaymentVerifier
	prices   PriceReader
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new payment service.
func NewService(store Store, verifier PaymentVerifier, priceReader PriceReader, cfg Config, logger *slog.Logger) *service {
	return &service{
		store:    store,
		verifier: verifier,
		prices:   priceReader,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// VerifyPayment validates the request, enforces attempt windows, rejects
// replays and existing subscribers, verifies the transaction on-chain and
// records the subscription. Every attempt that passes windowing is logged.
func (s *service) VerifyPayment(ctx context.Context, req VerifyRequest, clientIP string) (*Subscription, error) {
	sub, err := s.verifyPayment(ctx, req, clientIP)
	metrics.PaymentVerification(req.Currency, outcome(err))
	return sub, err
}

func (s *service) verifyPayment(ctx context.Context, req VerifyRequest, clientIP string) (*Subscription, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	req.TxHash = strings.ToLower(req.TxHash)
	if err := s.checkAttempts(ctx, req.WalletAddress, clientIP); err != nil {
		return nil, err
	}

	blockNumber, err := s.check(ctx, req)
	s.recordAttempt(ctx, req, clientIP, err)
	if err != nil {
		return nil, err
	}

	record := &storage.Subscription{
		WalletAddress: req.WalletAddress,
		TxHash:        req.TxHash,
		ChainID:       mainnet,
		Tier:          req.PlanName,
		AmountUSD:     req.Amount,
		Currency:      req.Currency,
		BlockNumber:   int64(blockNumber),
		IsActive:      true,
	}
	if err := s.store.CreateSubscription(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, s.conflict(ctx, req.TxHash)
		}
		return nil, fmt.Errorf("creating subscription: %w", err)
	}

	return toSubscription(record), nil
}

func (s *service) validate(req VerifyRequest) error {
	if err := validation.ValidateTxHash(req.TxHash); err != nil {
		return fmt.Errorf("%w: txHash: %v", ErrInvalidRequest, err)
	}
	if err := validation.ValidateAddress(req.WalletAddress); err != nil {
		return fmt.Errorf("%w: walletAddress: %v", ErrInvalidRequest, err)
	}
	if _, ok := s.cfg.PlanPrices[req.PlanName]; !ok {
		return fmt.Errorf("%w: planName must be Pro or Enterprise", ErrInvalidRequest)
	}
	if !(req.Amount > 0) {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if req.Currency != CurrencyETH && req.Currency != CurrencyUSDC {
		return fmt.Errorf("%w: currency must be ETH or USDC", ErrInvalidRequest)
	}
	return nil
}

func (s *service) checkAttempts(ctx context.Context, wallet, clientIP string) error {
	since := s.now().Add(-s.cfg.AttemptWindow)

	n, err := s.store.CountPaymentAttempts(ctx, storage.AttemptFilter{WalletAddress: wallet, Since: since})
	if err != nil {
		return fmt.Errorf("counting wallet attempts: %w", err)
	}
	if n >= s.cfg.WalletLimit {
		return &RetryError{
			Err:   fmt.Errorf("%w: Too many payment attempts for this wallet. Please try again later.", ErrRateLimited),
			After: s.cfg.AttemptWindow,
		}
	}

	if clientIP == "" {
		return nil
	}
	n, err = s.store.CountPaymentAttempts(ctx, storage.AttemptFilter{IPAddress: clientIP, Since: since})
	if err != nil {
		return fmt.Errorf("counting ip attempts: %w", err)
	}
	if n >= s.cfg.IPLimit {
		return &RetryError{
			Err:   fmt.Errorf("%w: Too many payment attempts. Please try again later.", ErrRateLimited),
			After: s.cfg.AttemptWindow,
		}
	}
	return nil
}

// check runs the database guards and then the on-chain verification,
// returning the block the payment was mined in.
func (s *service) check(ctx context.Context, req VerifyRequest) (uint64, error) {
	existing, err := s.store.GetSubscriptionByTxHash(ctx, req.TxHash)
	switch {
	case err == nil:
		return 0, fmt.Errorf("%w: Transaction already used by wallet %s", ErrTxAlreadyUsed, existing.WalletAddress)
	case !errors.Is(err, storage.ErrNotFound):
		return 0, fmt.Errorf("checking transaction: %w", err)
	}

	_, err = s.store.GetActiveSubscription(ctx, req.WalletAddress)
	switch {
	case err == nil:
		return 0, fmt.Errorf("%w: Wallet already has an active subscription", ErrAlreadySubscribed)
	case !errors.Is(err, storage.ErrNotFound):
		return 0, fmt.Errorf("checking subscription: %w", err)
	}

	planPrice := s.cfg.PlanPrices[req.PlanName]
	if req.Amount < planPrice {
		return 0, fmt.Errorf("%w: %s plan requires at least $%v", ErrInvalidRequest, req.PlanName, planPrice)
	}

	var result Verification
	switch req.Currency {
	case CurrencyETH:
		price := s.prices.EthPrice(ctx)
		if s.cfg.RequireLivePrice && !price.Live() {
			return 0, fmt.Errorf("%w: ETH price unavailable. Please try again later.", ErrVerificationFailed)
		}
		result = s.verifier.VerifyEth(ctx, req.TxHash, req.Amount, price.USD)
	case CurrencyUSDC:
		result = s.verifier.VerifyUsdc(ctx, req.TxHash, req.Amount)
	}
	if !result.Valid {
		return 0, fmt.Errorf("%w: %s", ErrVerificationFailed, result.Error)
	}

	if !strings.EqualFold(result.Details.From, req.WalletAddress) {
		return 0, fmt.Errorf("%w: Transaction sender does not match wallet address", ErrSenderMismatch)
	}
	return result.Details.BlockNumber, nil
}

// conflict classifies a unique violation lost to a concurrent request
func (s *service) conflict(ctx context.Context, txHash string) error {
	if existing, err := s.store.GetSubscriptionByTxHash(ctx, txHash); err == nil {
		return fmt.Errorf("%w: Transaction already used by wallet %s", ErrTxAlreadyUsed, existing.WalletAddress)
	}
	return fmt.Errorf("%w: Wallet already has an active subscription", ErrAlreadySubscribed)
}

func (s *service) recordAttempt(ctx context.Context, req VerifyRequest, clientIP string, verifyErr error) {
	attempt := &storage.PaymentAttempt{
		WalletAddress: req.WalletAddress,
		TxHash:        req.TxHash,
		IPAddress:     clientIP,
		Success:       verifyErr == nil,
		AttemptedAt:   s.now(),
	}
	if verifyErr != nil {
		attempt.ErrorMessage = Message(verifyErr)
	}
	if err := s.store.RecordPaymentAttempt(ctx, attempt); err != nil {
		s.logger.Error("recording payment attempt", "txHash", req.TxHash, "error", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTxAlreadyUsed), errors.Is(err, ErrAlreadySubscribed):
		return "conflict"
	case errors.Is(err, ErrSenderMismatch):
		return "sender_mismatch"
	case errors.Is(err, ErrVerificationFailed):
		return "rejected"
	default:
		return "error"
	}
}

func toSubscription(s *storage.Subscription) *Subscription {
	return &Subscription{
		ID:            s.ID,
		WalletAddress: s.WalletAddress,
		TxHash:        s.TxHash,
		Tier:          s.Tier,
		AmountUSD:     s.AmountUSD,
		Currency:      s.Currency,
		BlockNumber:   s.BlockNumber,
		CreatedAt:     s.CreatedAt,
		IsActive:      s.IsActive,
	}
}
