// Package fees computes per-protocol swap costs from the static fee table,
// the current gas price and the ETH/USD price.
package fees

import "github.com/gaslens/gaslens/internal/registry"

// DefaultGasPriceGwei is used when neither the caller nor the oracle supplies one
const DefaultGasPriceGwei = 35

// ProtocolFee is the estimated cost of a swap on one protocol
type ProtocolFee struct {
	ProtocolID   string  `json:"protocolId"`
	ProtocolName string  `json:"protocolName"`
	BaseFeeBps   float64 `json:"baseFeeBps"`
	GasEstimate  float64 `json:"gasEstimate"`
	TotalFeeUsd  float64 `json:"totalFeeUsd"`
}

// GasCostUSD converts gas units at gasPriceGwei into USD
func GasCostUSD(gasEstimate, gasPriceGwei, ethPrice float64) float64 {
	return gasEstimate * gasPriceGwei / 1e9 * ethPrice
}

// Compute prices every protocol in the fee table. The protocol fee is
// amountIn * bps / 10000 valued at ethPrice; the total adds the gas cost.
func Compute(amountIn, gasPriceGwei, ethPrice float64) []ProtocolFee {
	schedules := registry.FeeSchedules()
	out := make([]ProtocolFee, 0, len(schedules))
	for _, s := range schedules {
		protocolFeeUsd := amountIn * s.BaseFeeBps / 10000 * ethPrice
		out = append(out, ProtocolFee{
			ProtocolID:   s.ProtocolID,
			ProtocolName: s.ProtocolName,
			BaseFeeBps:   s.BaseFeeBps,
			GasEstimate:  s.GasEstimate,
			TotalFeeUsd:  GasCostUSD(s.GasEstimate, gasPriceGwei, ethPrice) + protocolFeeUsd,
		})
	}
	return out
}
