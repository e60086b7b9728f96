package gas

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Reader returns the current gas reading
type Reader interface {
	Current(ctx context.Context) Reading
}

// Handler serves the gas price endpoint
type Handler struct {
	svc Reader
}

// NewHandler creates a gas price handler
func NewHandler(svc Reader) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers GET /gas-price
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/gas-price", h.handleGasPrice)
}

func (h *Handler) handleGasPrice(w http.ResponseWriter, r *http.Request) {
	reading := h.svc.Current(r.Context())

	if !reading.Live() {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"data":      reading.Price,
			"success":   false,
			"source":    reading.Source,
			"error":     "Failed to fetch gas prices",
			"timestamp": time.Now().UnixMilli(),
		})
		return
	}

	w.Header().Set("Cache-Control", "public, s-maxage=12")
	writeJSON(w, http.StatusOK, map[string]any{
		"data":      reading.Price,
		"success":   true,
		"source":    reading.Source,
		"level":     Level(reading.Price.Standard),
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
