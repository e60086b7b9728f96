package prices

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gaslens/gaslens/internal/validation"
)

// Service is the price lookup used by the HTTP handler
type Service interface {
	TokenPrices(ctx context.Context, ids []string) TokenPrices
}

// Handler serves the token price endpoint
type Handler struct {
	svc Service
}

// NewHandler creates a token price handler
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers GET /token-prices
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/token-prices", h.handleTokenPrices)
}

func (h *Handler) handleTokenPrices(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing required parameter: ids")
		return
	}

	ids := validation.SanitizePriceIDs(raw)
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "No valid token IDs provided")
		return
	}

	result := h.svc.TokenPrices(r.Context(), ids)
	if result.Source != SourceLive {
		// Degrade gracefully: mock data with a 200
		writeJSON(w, http.StatusOK, map[string]any{
			"data":      result.Prices,
			"success":   false,
			"error":     "Failed to fetch token prices",
			"source":    "mock",
			"timestamp": time.Now().UnixMilli(),
		})
		return
	}

	w.Header().Set("Cache-Control", "public, s-maxage=60, stale-while-revalidate=30")
	writeJSON(w, http.StatusOK, map[string]any{
		"data":      result.Prices,
		"success":   true,
		"source":    source,
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
