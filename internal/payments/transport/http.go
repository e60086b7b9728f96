// Package transport provides the HTTP handler for payment verification.
package transport

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gaslens/gaslens/internal/middleware/realip"
	"github.com/gaslens/gaslens/internal/payments/domain"
)

// VerifyPaymentRequest is the HTTP request body for payment verification.
type VerifyPaymentRequest struct {
	TxHash        string  `json:"txHash"`
	WalletAddress string  `json:"walletAddress"`
	PlanName      string  `json:"planName"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

// ToDomain converts the request body to a domain request.
func (r VerifyPaymentRequest) ToDomain() domain.VerifyRequest {
	return domain.VerifyRequest{
		TxHash:        r.TxHash,
		WalletAddress: r.WalletAddress,
		PlanName:      r.PlanName,
		Amount:        r.Amount,
		Currency:      r.Currency,
	}
}

// SubscriptionResponse is the subscription returned after a verified payment.
type SubscriptionResponse struct {
	ID            string  `json:"id"`
	WalletAddress string  `json:"walletAddress"`
	TxHash        string  `json:"txHash"`
	Tier          string  `json:"tier"`
	AmountUSD     float64 `json:"amountUsd"`
	Currency      string  `json:"currency"`
	BlockNumber   int64   `json:"blockNumber"`
	CreatedAt     string  `json:"createdAt"`
	AccessType    string  `json:"accessType"`
}

// Handler handles payment HTTP requests.
type Handler struct {
	svc domain.Service
}

// NewHandler creates a new payments handler.
func NewHandler(svc domain.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers POST /crypto/verify-payment.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/crypto/verify-payment", h.handleVerifyPayment)
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var body VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request data")
		return
	}

	sub, err := h.svc.VerifyPayment(r.Context(), body.ToDomain(), realip.GetClientIP(r))
	if err != nil {
		status, code := statusFor(err)
		if after, ok := domain.RetryAfter(err); ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(after.Seconds()))))
		}
		writeError(w, status, code, domain.Message(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"subscription": SubscriptionResponse{
			ID:            sub.ID,
			WalletAddress: sub.WalletAddress,
			TxHash:        sub.TxHash,
			Tier:          sub.Tier,
			AmountUSD:     sub.AmountUSD,
			Currency:      sub.Currency,
			BlockNumber:   sub.BlockNumber,
			CreatedAt:     sub.CreatedAt,
			AccessType:    "lifetime",
		},
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, domain.ErrVerificationFailed):
		return http.StatusBadRequest, "VERIFICATION_FAILED"
	case errors.Is(err, domain.ErrSenderMismatch):
		return http.StatusForbidden, "SENDER_MISMATCH"
	case errors.Is(err, domain.ErrTxAlreadyUsed):
		return http.StatusConflict, "TX_ALREADY_USED"
	case errors.Is(err, domain.ErrAlreadySubscribed):
		return http.StatusConflict, "ALREADY_SUBSCRIBED"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
