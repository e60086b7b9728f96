package quotes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gaslens/gaslens/internal/validation"
)

// Quoter returns ranked quotes for a request
type Quoter interface {
	Quotes(ctx context.Context, req Request) *Result
}

// Handler serves the swap quote endpoint
type Handler struct {
	svc Quoter
}

// NewHandler creates a swap quote handler
func NewHandler(svc Quoter) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers GET /swap-quote
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/swap-quote", h.handleSwapQuote)
}

func (h *Handler) handleSwapQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := Request{
		TokenIn:   q.Get("tokenIn"),
		TokenOut:  q.Get("tokenOut"),
		RawAmount: q.Get("amount"),
	}

	if err := validation.ValidateQuoteToken(req.TokenIn); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "tokenIn: "+err.Error())
		return
	}
	if err := validation.ValidateQuoteToken(req.TokenOut); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "tokenOut: "+err.Error())
		return
	}
	amount, err := validation.ParseQuoteAmount(req.RawAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "amount: "+err.Error())
		return
	}
	req.Amount = amount

	result := h.svc.Quotes(r.Context(), req)

	w.Header().Set("Cache-Control", "public, s-maxage=10, stale-while-revalidate=5")
	writeJSON(w, http.StatusOK, map[string]any{
		"data":      result,
		"success":   true,
		"source":    result.Kind,
		"timestamp": time.Now().UnixMilli(),
	})
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
