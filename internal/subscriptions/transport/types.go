package transport

import "github.com/gaslens/gaslens/internal/subscriptions/domain"

// StatusResponse is the public subscription status of a wallet.
type StatusResponse struct {
	HasPro     bool   `json:"hasPro"`
	Tier       string `json:"tier"`
	Since      string `json:"since,omitempty"`
	AccessType string `json:"accessType,omitempty"`
}

// SubscriptionResponse is a subscription row as shown to administrators.
type SubscriptionResponse struct {
	ID            string  `json:"id"`
	WalletAddress string  `json:"wallet_address"`
	TxHash        string  `json:"tx_hash"`
	ChainID       int64   `json:"chain_id"`
	Tier          string  `json:"tier"`
	AmountUSD     float64 `json:"amount_usd"`
	Currency      string  `json:"currency"`
	BlockNumber   int64   `json:"block_number"`
	CreatedAt     string  `json:"created_at"`
	IsActive      bool    `json:"is_active"`
}

// StatsResponse summarizes all subscriptions.
type StatsResponse struct {
	Total  int `json:"total_subscriptions"`
	Active int `json:"active_subscriptions"`
}

// PaginationResponse describes the returned page.
type PaginationResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ListResponse is the admin subscription listing.
type ListResponse struct {
	Subscriptions []SubscriptionResponse `json:"subscriptions"`
	Stats         StatsResponse          `json:"stats"`
	Pagination    PaginationResponse     `json:"pagination"`
}

// UpdateRequest toggles a wallet's subscription.
type UpdateRequest struct {
	WalletAddress string `json:"walletAddress"`
	IsActive      *bool  `json:"isActive"`
}

// FromDomain converts a domain subscription to its admin representation.
func FromDomain(s *domain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
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

func fromList(result *domain.ListResult) ListResponse {
	resp := ListResponse{
		Subscriptions: make([]SubscriptionResponse, len(result.Subscriptions)),
		Stats: StatsResponse{
			Total:  result.Stats.Total,
			Active: result.Stats.Active,
		},
		Pagination: PaginationResponse{
			Limit:  result.Pagination.Limit,
			Offset: result.Pagination.Offset,
			Count:  len(result.Subscriptions),
		},
	}
	for i := range result.Subscriptions {
		resp.Subscriptions[i] = FromDomain(&result.Subscriptions[i])
	}
	return resp
}
