package client

// GasPrice holds the four speed tiers in gwei
type GasPrice struct {
	Slow      float64 `json:"slow"`
	Standard  float64 `json:"standard"`
	Fast      float64 `json:"fast"`
	Instant   float64 `json:"instant"`
	Timestamp int64   `json:"timestamp"`
}

// GasPriceResponse is the response of GET /api/gas-price. Source is
// "fallback" when the server could not reach its oracle.
type GasPriceResponse struct {
	Data      GasPrice `json:"data"`
	Success   bool     `json:"success"`
	Source    string   `json:"source"`
	Level     string   `json:"level,omitempty"`
	Error     string   `json:"error,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// FeeQuery selects a swap to price. GasPriceGwei is optional.
type FeeQuery struct {
	TokenIn      string
	TokenOut     string
	AmountIn     string
	GasPriceGwei float64
}

// ProtocolFee is the estimated cost of a swap on one protocol
type ProtocolFee struct {
	ProtocolID   string  `json:"protocolId"`
	ProtocolName string  `json:"protocolName"`
	BaseFeeBps   float64 `json:"baseFeeBps"`
	GasEstimate  float64 `json:"gasEstimate"`
	TotalFeeUsd  float64 `json:"totalFeeUsd"`
}

// ProtocolFeesResponse is the response of GET /api/protocol-fees
type ProtocolFeesResponse struct {
	Data           []ProtocolFee `json:"data"`
	Success        bool          `json:"success"`
	EthPriceSource string        `json:"ethPriceSource"`
	GasPriceGwei   float64       `json:"gasPriceGwei"`
	Timestamp      int64         `json:"timestamp"`
}

// PathStep is one hop of a route
type PathStep struct {
	Action   string `json:"action"`
	Protocol string `json:"protocol"`
	From     string `json:"from"`
	To       string `json:"to"`
	Note     string `json:"note,omitempty"`
}

// PathCost breaks down the USD cost of a route
type PathCost struct {
	GasFeeUsd      float64 `json:"gasFeeUsd"`
	ProtocolFeeUsd float64 `json:"protocolFeeUsd"`
	TotalUsd       float64 `json:"totalUsd"`
}

// PathAction is the deep link that executes a route
type PathAction struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

// SwapPath is a ranked route
type SwapPath struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Steps           []PathStep `json:"steps"`
	TotalCost       PathCost   `json:"totalCost"`
	EstimatedOutput float64    `json:"estimatedOutput"`
	TimeEstimate    string     `json:"timeEstimate"`
	MEVRisk         string     `json:"mevRisk"`
	Action          PathAction `json:"action"`
	QuoteKind       string     `json:"quoteKind"`
	SavingsUsd      float64    `json:"savingsUsd"`
	SavingsPercent  float64    `json:"savingsPercent"`
	IsBest          bool       `json:"isBest"`
	SavingsLabel    string     `json:"savingsLabel"`
}

// CompareResponse is the response of GET /api/compare
type CompareResponse struct {
	Data           []SwapPath `json:"data"`
	Success        bool       `json:"success"`
	EthPriceSource string     `json:"ethPriceSource"`
	GasPriceGwei   float64    `json:"gasPriceGwei"`
	Timestamp      int64      `json:"timestamp"`
}

// Quote is one swap quote
type Quote struct {
	Protocol     string   `json:"protocol"`
	ProtocolID   string   `json:"protocolId"`
	FromToken    string   `json:"fromToken"`
	ToToken      string   `json:"toToken"`
	FromAmount   string   `json:"fromAmount"`
	ToAmount     string   `json:"toAmount"`
	EstimatedGas int64    `json:"estimatedGas"`
	GasPriceGwei float64  `json:"gasPriceGwei"`
	PriceImpact  float64  `json:"priceImpact"`
	Route        []string `json:"route,omitempty"`
}

// QuoteResult is the ranked quote set
type QuoteResult struct {
	Quotes    []Quote `json:"quotes"`
	BestQuote *Quote  `json:"bestQuote"`
	Timestamp int64   `json:"timestamp"`
}

// SwapQuoteResponse is the response of GET /api/swap-quote. Source is
// "mock" when no live provider answered.
type SwapQuoteResponse struct {
	Data      QuoteResult `json:"data"`
	Success   bool        `json:"success"`
	Source    string      `json:"source"`
	Timestamp int64       `json:"timestamp"`
}

// TokenPrice is a USD price with its 24h change
type TokenPrice struct {
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
}

// TokenPricesResponse is the response of GET /api/token-prices
type TokenPricesResponse struct {
	Data      map[string]TokenPrice `json:"data"`
	Success   bool                  `json:"success"`
	Source    string                `json:"source"`
	Error     string                `json:"error,omitempty"`
	Timestamp int64                 `json:"timestamp"`
}

// SubscriptionStatus is a wallet's public subscription status
type SubscriptionStatus struct {
	HasPro     bool   `json:"hasPro"`
	Tier       string `json:"tier"`
	Since      string `json:"since,omitempty"`
	AccessType string `json:"accessType,omitempty"`
}

// VerifyPaymentRequest claims that a transaction pays for a plan
type VerifyPaymentRequest struct {
	TxHash        string  `json:"txHash"`
	WalletAddress string  `json:"walletAddress"`
	PlanName      string  `json:"planName"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

// Subscription is the subscription created by a verified payment
type Subscription struct {
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

// AdminSubscription is a subscription row as returned by the admin API
type AdminSubscription struct {
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

// SubscriptionStats summarizes all subscriptions
type SubscriptionStats struct {
	Total  int `json:"total_subscriptions"`
	Active int `json:"active_subscriptions"`
}

// Pagination describes a returned page
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ListSubscriptionsResponse is the response of GET /api/admin/subscriptions
type ListSubscriptionsResponse struct {
	Subscriptions []AdminSubscription `json:"subscriptions"`
	Stats         SubscriptionStats   `json:"stats"`
	Pagination    Pagination          `json:"pagination"`
}

// Protocol is a directory entry for a supported exchange
type Protocol struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Website     string `json:"website"`
	Description string `json:"description"`
	Audited     bool   `json:"audited"`
	Active      bool   `json:"active"`
}

// Token is a registered asset
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	Category string `json:"category"`
}

// PairSupport lists which protocols can trade a token pair
type PairSupport struct {
	TokenIn     string            `json:"tokenIn"`
	TokenOut    string            `json:"tokenOut"`
	Protocols   []string          `json:"protocols"`
	Unsupported map[string]string `json:"unsupported"`
}
