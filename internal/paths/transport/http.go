package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gaslens/gaslens/internal/fees"
	"github.com/gaslens/gaslens/internal/paths/domain"
)

// Handler handles route comparison requests.
type Handler struct {
	svc domain.Service
}

// NewHandler creates a comparison handler.
func NewHandler(svc domain.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers GET /compare.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/compare", h.handleCompare)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := fees.ParseRequest(q)
	if err != nil {
		fees.WriteRequestError(w, err)
		return
	}

	includeAggregators := true
	if raw := q.Get("aggregators"); raw != "" {
		includeAggregators, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "aggregators must be true or false")
			return
		}
	}

	result, err := h.svc.Compare(r.Context(), domain.CompareRequest{
		Request:            req,
		RawAmount:          q.Get("amountIn"),
		IncludeAggregators: includeAggregators,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compare swap paths")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":           FromDomain(result.Paths),
		"success":        true,
		"ethPriceSource": result.EthPrice.Source,
		"gasPriceGwei":   result.GasPriceGwei,
		"timestamp":      time.Now().UnixMilli(),
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
