package registry

// Chain identifies the network a protocol is deployed on
type Chain struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	NativeCurrency string `json:"nativeCurrency"`
	ExplorerURL    string `json:"explorerUrl"`
}

// Ethereum is Ethereum mainnet
var Ethereum = Chain{
	ID:             1,
	Name:           "Ethereum",
	NativeCurrency: "ETH",
	ExplorerURL:    "https://etherscan.io",
}

// Protocol is a directory entry for a supported exchange
type Protocol struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Chain       Chain  `json:"chain"`
	Website     string `json:"website"`
	Description string `json:"description"`
	Audited     bool   `json:"audited"`
	Active      bool   `json:"active"`
}

var protocols = []Protocol{
	{
		ID:          "uniswap-v3",
		Name:        "Uniswap V3",
		Type:        "dex",
		Chain:       Ethereum,
		Website:     "https://uniswap.org",
		Description: "Leading decentralized exchange with concentrated liquidity",
		Audited:     true,
		Active:      true,
	},
	{
		ID:          "sushiswap",
		Name:        "SushiSwap",
		Type:        "dex",
		Chain:       Ethereum,
		Website:     "https://sushi.com",
		Description: "Community-driven DEX and DeFi platform",
		Audited:     true,
		Active:      true,
	},
	{
		ID:          "curve",
		Name:        "Curve",
		Type:        "dex",
		Chain:       Ethereum,
		Website:     "https://curve.fi",
		Description: "Stablecoin-focused automated market maker",
		Audited:     true,
		Active:      true,
	},
}

// Protocols returns the protocol directory
func Protocols() []Protocol {
	return append([]Protocol(nil), protocols...)
}

// ProtocolByID looks up a directory entry
func ProtocolByID(id string) (Protocol, bool) {
	for _, p := range protocols {
		if p.ID == id {
			return p, true
		}
	}
	return Protocol{}, false
}

// FeeSchedule holds the static quote constants for one protocol
type FeeSchedule struct {
	ProtocolID   string
	ProtocolName string
	BaseFeeBps   float64
	GasEstimate  float64
}

var feeSchedules = []FeeSchedule{
	{ProtocolID: "uniswap-v3", ProtocolName: "Uniswap V3", BaseFeeBps: 30, GasEstimate: 150000},
	{ProtocolID: "sushiswap", ProtocolName: "SushiSwap", BaseFeeBps: 30, GasEstimate: 145000},
	{ProtocolID: "curve", ProtocolName: "Curve", BaseFeeBps: 4, GasEstimate: 120000},
	{ProtocolID: "chainflip", ProtocolName: "Chainflip", BaseFeeBps: 10, GasEstimate: 135000},
	{ProtocolID: "relay", ProtocolName: "Relay", BaseFeeBps: 15, GasEstimate: 130000},
}

// FeeSchedules returns the fee table in display order
func FeeSchedules() []FeeSchedule {
	return append([]FeeSchedule(nil), feeSchedules...)
}
