// Package domain builds and ranks swap routes from per-protocol fee quotes.
package domain

// PathType classifies a route
type PathType string

const (
	PathDirect     PathType = "direct"
	PathAggregated PathType = "aggregated"
	PathBridge     PathType = "bridge"
	PathSplit      PathType = "split"
)

// MEVRisk is a coarse exposure rating for front-running and sandwiching
type MEVRisk string

const (
	MEVLow    MEVRisk = "low"
	MEVMedium MEVRisk = "medium"
	MEVHigh   MEVRisk = "high"
)

// QuoteKind separates costs derived from the live fee table from fixed
// illustrative figures
type QuoteKind string

const (
	QuoteComputed     QuoteKind = "computed"
	QuoteIllustrative QuoteKind = "illustrative"
)

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
	Type            PathType   `json:"type"`
	Steps           []PathStep `json:"steps"`
	TotalCost       PathCost   `json:"totalCost"`
	EstimatedOutput float64    `json:"estimatedOutput"`
	TimeEstimate    string     `json:"timeEstimate"`
	MEVRisk         MEVRisk    `json:"mevRisk"`
	Action          PathAction `json:"action"`
	QuoteKind       QuoteKind  `json:"quoteKind"`
	SavingsUsd      float64    `json:"savingsUsd"`
	SavingsPercent  float64    `json:"savingsPercent"`
	IsBest          bool       `json:"isBest"`
}
