package fees

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Quoter prices a validated fee request
type Quoter interface {
	Quote(ctx context.Context, req Request) *Quote
}

// Handler serves the protocol fee endpoint
type Handler struct {
	svc Quoter
}

// NewHandler creates a protocol fee handler
func NewHandler(svc Quoter) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers GET /protocol-fees
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/protocol-fees", h.handleProtocolFees)
}

func (h *Handler) handleProtocolFees(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		WriteRequestError(w, err)
		return
	}

	quote := h.svc.Quote(r.Context(), req)
	writeJSON(w, http.StatusOK, map[string]any{
		"data":           quote.Fees,
		"success":        true,
		"ethPriceSource": quote.EthPrice.Source,
		"gasPriceGwei":   quote.GasPriceGwei,
		"timestamp":      time.Now().UnixMilli(),
	})
}

// WriteRequestError renders a ParseRequest failure as a 400
func WriteRequestError(w http.ResponseWriter, err error) {
	msg := "Invalid request"
	if errors.Is(err, ErrInvalidRequest) {
		msg = strings.TrimPrefix(err.Error(), ErrInvalidRequest.Error()+": ")
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":    "INVALID_REQUEST",
			"message": msg,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
