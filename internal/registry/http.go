package registry

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gaslens/gaslens/internal/validation"
)

// Handler serves the static registry tables
type Handler struct{}

// NewHandler creates a registry handler
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes registers the protocol and token directory routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/protocols", h.handleProtocols)
	r.Get("/protocols/support", h.handleSupport)
	r.Get("/protocols/{id}", h.handleProtocol)
	r.Get("/tokens", h.handleTokens)
	r.Get("/tokens/{address}", h.handleToken)
}

// PairSupport lists which protocols can trade a token pair
type PairSupport struct {
	TokenIn     string            `json:"tokenIn"`
	TokenOut    string            `json:"tokenOut"`
	Protocols   []string          `json:"protocols"`
	Unsupported map[string]string `json:"unsupported"`
}

func (h *Handler) handleProtocols(w http.ResponseWriter, r *http.Request) {
	writeData(w, Protocols())
}

func (h *Handler) handleProtocol(w http.ResponseWriter, r *http.Request) {
	p, ok := ProtocolByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Protocol not found")
		return
	}
	writeData(w, p)
}

func (h *Handler) handleTokens(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		writeData(w, TokensByCategory(category))
		return
	}
	writeData(w, Tokens())
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if err := validation.ValidateAddress(address); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid token address")
		return
	}
	token, ok := TokenByAddress(address)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Token not found")
		return
	}
	writeData(w, token)
}

func (h *Handler) handleSupport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tokenIn, tokenOut := q.Get("tokenIn"), q.Get("tokenOut")
	if tokenIn == "" || tokenOut == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing required parameters: tokenIn, tokenOut")
		return
	}
	if validation.ValidateQuoteToken(tokenIn) != nil || validation.ValidateQuoteToken(tokenOut) != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid token")
		return
	}

	from, to := ResolveAddress(tokenIn), ResolveAddress(tokenOut)
	support := PairSupport{
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		Protocols:   ProtocolsForPair(from, to),
		Unsupported: map[string]string{},
	}
	for _, fee := range feeSchedules {
		if reason := UnsupportedPairReason(fee.ProtocolID, from, to); reason != "" {
			support.Unsupported[fee.ProtocolID] = reason
		}
	}
	writeData(w, support)
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, map[string]any{
		"data":      data,
		"success":   true,
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
