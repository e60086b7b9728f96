// Package transport provides HTTP handlers for subscription status and
// administration.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gaslens/gaslens/internal/auth"
	"github.com/gaslens/gaslens/internal/subscriptions/domain"
)

// Handler handles subscription HTTP requests.
type Handler struct {
	svc domain.Service
}

// NewHandler creates a new subscriptions handler.
func NewHandler(svc domain.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the public status route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/subscription/status", h.handleStatus)
}

// RegisterAdminRoutes registers the admin routes behind bearer authentication.
func (h *Handler) RegisterAdminRoutes(r chi.Router, adminSecret string) {
	r.Route("/admin/subscriptions", func(r chi.Router) {
		r.Use(auth.AdminMiddleware(adminSecret, writeError))
		r.Get("/", h.handleList)
		r.Patch("/", h.handleUpdate)
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Wallet address required")
		return
	}

	status, err := h.svc.Status(r.Context(), wallet)
	if errors.Is(err, domain.ErrInvalidWallet) {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid wallet address")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check subscription")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		HasPro:     status.HasPro,
		Tier:       status.Tier,
		Since:      status.Since,
		AccessType: status.AccessType,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	result, err := h.svc.List(r.Context(), domain.PaginationParams{Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch subscriptions")
		return
	}

	writeJSON(w, http.StatusOK, fromList(result))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request data")
		return
	}
	if req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Wallet address required")
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "isActive must be a boolean")
		return
	}

	sub, err := h.svc.SetActive(r.Context(), req.WalletAddress, *req.IsActive)
	if err != nil {
		status, code, message := errorFor(err)
		writeError(w, status, code, message)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"subscription": FromDomain(sub),
	})
}

func errorFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidWallet):
		return http.StatusBadRequest, "INVALID_REQUEST", "Invalid wallet address"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Subscription not found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT", "Wallet already has an active subscription"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update subscription"
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
