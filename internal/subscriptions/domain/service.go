// Package domain contains subscription status lookups and admin management.
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaslens/gaslens/internal/observability/metrics"
	"github.com/gaslens/gaslens/internal/storage"
	"github.com/gaslens/gaslens/internal/validation"
)

// Common errors returned by the subscription service.
var (
	ErrInvalidWallet = errors.New("invalid wallet address")
	ErrNotFound      = errors.New("subscription not found")
	ErrConflict      = errors.New("wallet already has an active subscription")
)

const (
	// FreeTier is reported for wallets without an active subscription
	FreeTier = "Free"
	// LifetimeAccess is the only access type a payment grants
	LifetimeAccess = "lifetime"

	DefaultLimit = 50
	MaxLimit     = 100
)

// Store defines the storage operations needed by the subscriptions domain.
type Store interface {
	GetActiveSubscription(ctx context.Context, walletAddress string) (*storage.Subscription, error)
	ListSubscriptions(ctx context.Context, pagination storage.PaginationParams) ([]storage.Subscription, error)
	CountSubscriptions(ctx context.Context) (*storage.SubscriptionStats, error)
	SetSubscriptionActive(ctx context.Context, walletAddress string, active bool) (*storage.Subscription, error)
}

// Service defines subscription operations.
type Service interface {
	Status(ctx context.Context, wallet string) (*Status, error)
	List(ctx context.Context, pagination PaginationParams) (*ListResult, error)
	SetActive(ctx context.Context, wallet string, active bool) (*Subscription, error)
}

type service struct {
	store Store
}

// NewService creates a new subscription service.
func NewService(store Store) *service {
	return &service{store: store}
}

// Status reports whether wallet holds an active subscription.
func (s *service) Status(ctx context.Context, wallet string) (*Status, error) {
	if err := validation.ValidateAddress(wallet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWallet, err)
	}

	sub, err := s.store.GetActiveSubscription(ctx, wallet)
	if errors.Is(err, storage.ErrNotFound) {
		return &Status{Tier: FreeTier}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscription: %w", err)
	}

	return &Status{
		HasPro:     true,
		Tier:       sub.Tier,
		Since:      sub.CreatedAt,
		AccessType: LifetimeAccess,
	}, nil
}

// List returns a page of subscriptions with table-wide stats.
func (s *service) List(ctx context.Context, pagination PaginationParams) (*ListResult, error) {
	pagination = NormalizePagination(pagination)

	subs, err := s.store.ListSubscriptions(ctx, storage.PaginationParams{
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}

	stats, err := s.store.CountSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting subscriptions: %w", err)
	}

	result := &ListResult{
		Subscriptions: make([]Subscription, len(subs)),
		Stats:         Stats{Total: stats.Total, Active: stats.Active},
		Pagination:    pagination,
	}
	for i := range subs {
		result.Subscriptions[i] = *toSubscription(&subs[i])
	}
	return result, nil
}

// SetActive activates or deactivates a wallet's subscription.
func (s *service) SetActive(ctx context.Context, wallet string, active bool) (*Subscription, error) {
	action := "deactivate"
	if active {
		action = "activate"
	}

	sub, err := s.setActive(ctx, wallet, active)
	metrics.SubscriptionChange(action, changeStatus(err))
	return sub, err
}

func (s *service) setActive(ctx context.Context, wallet string, active bool) (*Subscription, error) {
	if err := validation.ValidateAddress(wallet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWallet, err)
	}

	sub, err := s.store.SetSubscriptionActive(ctx, wallet, active)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, storage.ErrDuplicate):
		return nil, ErrConflict
	case err != nil:
		return nil, fmt.Errorf("updating subscription: %w", err)
	}
	return toSubscription(sub), nil
}

// NormalizePagination applies the default limit and clamps out-of-range values.
func NormalizePagination(p PaginationParams) PaginationParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func changeStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidWallet):
		return "invalid"
	default:
		return "error"
	}
}

func toSubscription(s *storage.Subscription) *Subscription {
	return &Subscription{
		ID:            s.ID,
		WalletAddress: s.WalletAddress,
		TxHash:        s.TxHash,
		ChainID:       s.ChainID,
		Tier:          s.Tier,
		AmountUSD:     s.AmountUSD,
		Currency:      s.Currency,
		BlockNumber:   s.BlockNumber,
		CreatedAt:     s.CreatedAt,
		IsActive:      s.IsActive,
	}
}
