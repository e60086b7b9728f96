package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaslens/gaslens/internal/prices"
	"github.com/gaslens/gaslens/internal/storage"
)

type mockStore struct {
	subs      []*storage.Subscription
	attempts  []storage.PaymentAttempt
	createErr error
}

func (m *mockStore) GetSubscriptionByTxHash(ctx context.Context, txHash string) (*storage.Subscription, error) {
	for _, s := range m.subs {
		if s.TxHash == txHash {
			return s, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) GetActiveSubscription(ctx context.Context, wallet string) (*storage.Subscription, error) {
	for _, s := range m.subs {
		if s.IsActive && strings.EqualFold(s.WalletAddress, wallet) {
			return s, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) CreateSubscription(ctx context.Context, sub *storage.Subscription) error {
	if m.createErr != nil {
		return m.createErr
	}
	sub.ID = "sub-1"
	sub.CreatedAt = "2026-01-01T00:00:00Z"
	m.subs = append(m.subs, sub)
	return nil
}

func (m *mockStore) RecordPaymentAttempt(ctx context.Context, attempt *storage.PaymentAttempt) error {
	m.attempts = append(m.attempts, *attempt)
	return nil
}

func (m *mockStore) CountPaymentAttempts(ctx context.Context, filter storage.AttemptFilter) (int, error) {
	n := 0
	for _, a := range m.attempts {
		if filter.WalletAddress != "" && !strings.EqualFold(a.WalletAddress, filter.WalletAddress) {
			continue
		}
		if filter.IPAddress != "" && a.IPAddress != filter.IPAddress {
			continue
		}
		if !filter.Since.IsZero() && a.AttemptedAt.Before(filter.Since) {
			continue
		}
		n++
	}
	return n, nil
}

type stubVerifier struct {
	result    Verification
	ethCalls  int
	usdcCalls int
	ethPrice  float64
}

func (s *stubVerifier) VerifyEth(ctx context.Context, txHash string, expectedUSD, ethPriceUSD float64) Verification {
	s.ethCalls++
	s.ethPrice = ethPriceUSD
	return s.result
}

func (s *stubVerifier) VerifyUsdc(ctx context.Context, txHash string, expectedUSD float64) Verification {
	s.usdcCalls++
	return s.result
}

type stubPrices struct {
	quote prices.PriceQuote
}

func (s stubPrices) EthPrice(ctx context.Context) prices.PriceQuote { return s.quote }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validVerification() Verification {
	return Verification{Valid: true, Details: &Details{
		From:          strings.ToUpper(testPayer[:2]) + testPayer[2:],
		To:            testTreasury,
		Value:         "0.0045",
		BlockNumber:   100,
		Confirmations: 10,
	}}
}

func newTestService(store *mockStore, verifier *stubVerifier, cfgMod func(*Config)) *service {
	cfg := Config{
		PlanPrices:    map[string]float64{"Pro": 9, "Enterprise": 49},
		WalletLimit:   5,
		IPLimit:       10,
		AttemptWindow: 5 * time.Minute,
	}
	if cfgMod != nil {
		cfgMod(&cfg)
	}
	svc := NewService(store, verifier, stubPrices{quote: prices.PriceQuote{Source: prices.SourceLive, USD: 2000}}, cfg, discardLogger)
	svc.now = func() time.Time { return testNow }
	return svc
}

func validRequest() VerifyRequest {
	return VerifyRequest{
		TxHash:        testTxHash,
		WalletAddress: testPayer,
		PlanName:      "Pro",
		Amount:        9,
		Currency:      CurrencyETH,
	}
}

func TestService_VerifyPayment(t *testing.T) {
	store := &mockStore{}
	verifier := &stubVerifier{result: validVerification()}
	svc := newTestService(store, verifier, nil)

	sub, err := svc.VerifyPayment(context.Background(), validRequest(), "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, "Pro", sub.Tier)
	assert.Equal(t, int64(100), sub.BlockNumber)
	assert.True(t, sub.IsActive)
	assert.Equal(t, 1, verifier.ethCalls)
	assert.Equal(t, 2000.0, verifier.ethPrice)

	require.Len(t, store.subs, 1)
	assert.Equal(t, int64(1), store.subs[0].ChainID)

	require.Len(t, store.attempts, 1)
	assert.True(t, store.attempts[0].Success)
	assert.Equal(t, "10.0.0.1", store.attempts[0].IPAddress)
	assert.Empty(t, store.attempts[0].ErrorMessage)
}

func TestService_VerifyPaymentUSDC(t *testing.T) {
	verifier := &stubVerifier{result: validVerification()}
	req := validRequest()
	req.Currency = CurrencyUSDC

	_, err := newTestService(&mockStore{}, verifier, nil).VerifyPayment(context.Background(), req, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, verifier.usdcCalls)
	assert.Zero(t, verifier.ethCalls)
}

func TestService_VerifyPaymentInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *VerifyRequest)
	}{
		{"bad hash", func(r *VerifyRequest) { r.TxHash = "0x123" }},
		{"bad wallet", func(r *VerifyRequest) { r.WalletAddress = "0xnope" }},
		{"unknown plan", func(r *VerifyRequest) { r.PlanName = "Basic" }},
		{"zero amount", func(r *VerifyRequest) { r.Amount = 0 }},
		{"unknown currency", func(r *VerifyRequest) { r.Currency = "BTC" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			verifier := &stubVerifier{}
			req := validRequest()
			tt.mutate(&req)

			_, err := newTestService(store, verifier, nil).VerifyPayment(context.Background(), req, "10.0.0.1")
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, store.attempts)
			assert.Zero(t, verifier.ethCalls)
		})
	}
}

func TestService_VerifyPaymentAttemptWindows(t *testing.T) {
	tests := []struct {
		name    string
		seed    func() []storage.PaymentAttempt
		wantErr bool
	}{
		{"wallet at limit", func() []storage.PaymentAttempt {
			return repeatAttempts(5, testPayer, "10.9.9.9", testNow.Add(-time.Minute))
		}, true},
		{"ip at limit", func() []storage.PaymentAttempt {
			return repeatAttempts(10, "0x4444444444444444444444444444444444444444", "10.0.0.1", testNow.Add(-time.Minute))
		}, true},
		{"old attempts expire", func() []storage.PaymentAttempt {
			return repeatAttempts(20, testPayer, "10.0.0.1", testNow.Add(-6*time.Minute))
		}, false},
		{"under limit", func() []storage.PaymentAttempt {
			return repeatAttempts(4, testPayer, "10.0.0.1", testNow.Add(-time.Minute))
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{attempts: tt.seed()}
			seeded := len(store.attempts)
			verifier := &stubVerifier{result: validVerification()}

			_, err := newTestService(store, verifier, nil).VerifyPayment(context.Background(), validRequest(), "10.0.0.1")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRateLimited)
				after, ok := RetryAfter(err)
				assert.True(t, ok)
				assert.Equal(t, 5*time.Minute, after)
				assert.Zero(t, verifier.ethCalls)
				assert.Len(t, store.attempts, seeded)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func repeatAttempts(n int, wallet, ip string, at time.Time) []storage.PaymentAttempt {
	out := make([]storage.PaymentAttempt, n)
	for i := range out {
		out[i] = storage.PaymentAttempt{WalletAddress: wallet, IPAddress: ip, AttemptedAt: at}
	}
	return out
}

func TestService_VerifyPaymentConflicts(t *testing.T) {
	claimer := "0x5555555555555555555555555555555555555555"

	t.Run("replayed transaction", func(t *testing.T) {
		store := &mockStore{subs: []*storage.Subscription{{WalletAddress: claimer, TxHash: testTxHash, IsActive: true}}}
		verifier := &stubVerifier{}

		_, err := newTestService(store, verifier, nil).VerifyPayment(context.Background(), validRequest(), "10.0.0.1")
		assert.ErrorIs(t, err, ErrTxAlreadyUsed)
		assert.Equal(t, "Transaction already used by wallet "+claimer, Message(err))
		assert.Zero(t, verifier.ethCalls)
		require.Len(t, store.attempts, 1)
		assert.False(t, store.attempts[0].Success)
		assert.Equal(t, Message(err), store.attempts[0].ErrorMessage)
	})

	t.Run("replayed transaction in another case", func(t *testing.T) {
		hash := "0xabab" + strings.Repeat("0", 59) + "1"
		store := &mockStore{subs: []*storage.Subscription{{WalletAddress: testPayer, TxHash: hash, IsActive: false}}}
		verifier := &stubVerifier{result: validVerification()}

		req := validRequest()
		req.TxHash = "0x" + strings.ToUpper(hash[2:])

		sub, err := newTestService(store, verifier, nil).VerifyPayment(context.Background(), req, "10.0.0.1")
		assert.Nil(t, sub)
		assert.ErrorIs(t, err, ErrTxAlreadyUsed)
		assert.Zero(t, verifier.ethCalls)
		require.Len(t, store.attempts, 1)
		assert.Equal(t, hash, store.attempts[0].TxHash)
	})

	t.Run("wallet already subscribed", func(t *testing.T) {
		store := &mockStore{subs: []*storage.Subscription{{WalletAddress: testPayer, TxHash: "0xother", IsActive: true}}}
		verifier := &stubVerifier{}

		_, err := newTestService(store, verifier, nil).VerifyPayment(context.Background(), validRequest(), "10.0.0.1")
		assert.ErrorIs(t, err, ErrAlreadySubscribed)
		assert.Zero(t, verifier.ethCalls)
	})

	t.Run("lost insert race", func(t *testing.T) {
		store := &mockStore{createErr: storage.ErrDuplicate}
		verifier := &stubVerifier{result: validVerification()}

		_, err := newTestService(store, verifier, nil).VerifyPayment(context.Background(), validRequest(), "10.0.0.1")
		assert.ErrorIs(t, err, ErrAlreadySubscribed)
	})
}

func TestService_VerifyPaymentBelowPlanPrice(t *testing.T) {
	verifier := &stubVerifier{}
	req := validRequest()
	req.PlanName = "Enterprise"

	_, err := newTestService(&mockStore{}, verifier, nil).VerifyPayment(context.Background(), req, "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, "Enterprise plan requires at least $49", Message(err))
	assert.Zero(t, verifier.ethCalls)
}

func TestService_VerifyPaymentRejected(t *testing.T) {
	store := &mockStore{}
	verifier := &stubVerifier{result: Verification{Error: "Transaction failed on-chain"}}

	_, err := newTestService(store, verifier, nil).VerifyPayment(context.Background(), validRequest(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, "Transaction failed on-chain", Message(err))
	require.Len(t, store.attempts, 1)
	assert.Equal(t, "Transaction failed on-chain", store.attempts[0].ErrorMessage)
	assert.Empty(t, store.subs)
}

func TestService_VerifyPaymentSenderMismatch(t *testing.T) {
	result := validVerification()
	result.Details.From = "0x6666666666666666666666666666666666666666"
	store := &mockStore{}

	_, err := newTestService(store, &stubVerifier{result: result}, nil).VerifyPayment(context.Background(), validRequest(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrSenderMismatch)
	assert.Empty(t, store.subs)
}

func TestService_VerifyPaymentRequiresLivePrice(t *testing.T) {
	verifier := &stubVerifier{result: validVerification()}
	svc := newTestService(&mockStore{}, verifier, func(c *Config) { c.RequireLivePrice = true })
	svc.prices = stubPrices{quote: prices.PriceQuote{Source: prices.SourceFallback, USD: 2000}}

	_, err := svc.VerifyPayment(context.Background(), validRequest(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Zero(t, verifier.ethCalls)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Failed to verify payment", Message(errors.New("db down")))
	assert.Equal(t, "Too many payment attempts. Please try again later.",
		Message(fmt.Errorf("%w: Too many payment attempts. Please try again later.", ErrRateLimited)))
}
