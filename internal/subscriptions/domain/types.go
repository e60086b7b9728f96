package domain

// Subscription is a paid tier bound to a wallet.
type Subscription struct {
	ID            string
	WalletAddress string
	TxHash        string
	ChainID       int64
	Tier          string
	AmountUSD     float64
	Currency      string
	BlockNumber   int64
	CreatedAt     string
	IsActive      bool
}

// Status is a wallet's subscription status.
type Status struct {
	HasPro     bool
	Tier       string
	Since      string
	AccessType string
}

// Stats counts subscriptions.
type Stats struct {
	Total  int
	Active int
}

// PaginationParams contains offset pagination options.
type PaginationParams struct {
	Limit  int
	Offset int
}

// ListResult is one page of subscriptions, newest first.
type ListResult struct {
	Subscriptions []Subscription
	Stats         Stats
	Pagination    PaginationParams
}
