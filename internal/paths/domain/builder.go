package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gaslens/gaslens/internal/fees"
	"github.com/gaslens/gaslens/internal/registry"
)

// slowGasThreshold separates protocols quoted at ~45s from those at ~30s
const slowGasThreshold = 140000

// Input is everything BuildSwapPaths needs. It performs no I/O.
type Input struct {
	Fees         []fees.ProtocolFee
	TokenIn      string
	TokenOut     string
	AmountIn     string
	EthPrice     float64
	GasPriceGwei float64
	// IncludeAggregators appends the 1inch and Matcha routes when the pair
	// is supported by them.
	IncludeAggregators bool
}

type aggregator struct {
	id, name, protocolID, linkID string
	provider, stepProtocol       string
	note, label, timeEstimate    string
	gasUsd, protocolUsd          float64
	outputFactor                 float64
	mev                          MEVRisk
}

var aggregators = []aggregator{
	{
		id: "1inch-aggregated", name: "1inch Optimized Route", protocolID: "1inch", linkID: "1inch",
		provider: "1inch Network", stepProtocol: "1inch", label: "Use 1inch",
		note: "Split across multiple pools for best price", timeEstimate: "~45 seconds",
		gasUsd: 28.0, protocolUsd: 1.4, outputFactor: 0.9993, mev: MEVMedium,
	},
	{
		id: "matcha-aggregated", name: "Matcha 0x Route", protocolID: "0x", linkID: "matcha",
		provider: "Matcha (0x)", stepProtocol: "Matcha", label: "Use Matcha",
		note: "Sourced from 0x liquidity", timeEstimate: "~40 seconds",
		gasUsd: 32.0, protocolUsd: 0.8, outputFactor: 0.9996, mev: MEVLow,
	},
}

// BuildSwapPaths turns protocol fee quotes into routes ranked by total cost.
// Only protocols whose support matrix covers both tokens produce a route.
// The cheapest route is marked best and every route carries its savings
// relative to the most expensive one. An unparseable or non-positive amount
// yields no routes.
func BuildSwapPaths(in Input) []SwapPath {
	paths := []SwapPath{}

	amount, err := strconv.ParseFloat(strings.TrimSpace(in.AmountIn), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return paths
	}
	gwei := in.GasPriceGwei
	if gwei <= 0 {
		gwei = fees.DefaultGasPriceGwei
	}

	from := registry.ResolveAddress(in.TokenIn)
	to := registry.ResolveAddress(in.TokenOut)

	for _, fee := range in.Fees {
		if !registry.SupportsPair(fee.ProtocolID, from, to) {
			continue
		}
		paths = append(paths, directPath(fee, in, amount, gwei))
	}
	if in.IncludeAggregators {
		for _, agg := range aggregators {
			if !registry.SupportsPair(agg.protocolID, from, to) {
				continue
			}
			paths = append(paths, aggregatedPath(agg, in, amount))
		}
	}

	rank(paths)
	return paths
}

func directPath(fee fees.ProtocolFee, in Input, amount, gwei float64) SwapPath {
	gasUsd := fees.GasCostUSD(fee.GasEstimate, gwei, in.EthPrice)
	timeEstimate := "~30 seconds"
	if fee.GasEstimate > slowGasThreshold {
		timeEstimate = "~45 seconds"
	}

	return SwapPath{
		ID:   fee.ProtocolID + "-direct",
		Name: "Direct Swap on " + fee.ProtocolName,
		Type: PathDirect,
		Steps: []PathStep{{
			Action:   "swap",
			Protocol: fee.ProtocolName,
			From:     in.TokenIn,
			To:       in.TokenOut,
		}},
		TotalCost: PathCost{
			GasFeeUsd:      gasUsd,
			ProtocolFeeUsd: fee.TotalFeeUsd - gasUsd,
			TotalUsd:       fee.TotalFeeUsd,
		},
		EstimatedOutput: amount * in.EthPrice * (1 - fee.BaseFeeBps/10000),
		TimeEstimate:    timeEstimate,
		MEVRisk:         MEVRiskFor(fee.ProtocolID),
		Action: PathAction{
			Label:    "Swap on " + fee.ProtocolName,
			URL:      DeepLink(fee.ProtocolID, fee.ProtocolName, in.TokenIn, in.TokenOut, in.AmountIn),
			Provider: fee.ProtocolName,
		},
		QuoteKind: QuoteComputed,
	}
}

func aggregatedPath(agg aggregator, in Input, amount float64) SwapPath {
	return SwapPath{
		ID:   agg.id,
		Name: agg.name,
		Type: PathAggregated,
		Steps: []PathStep{{
			Action:   "swap",
			Protocol: agg.stepProtocol,
			From:     in.TokenIn,
			To:       in.TokenOut,
			Note:     agg.note,
		}},
		TotalCost: PathCost{
			GasFeeUsd:      agg.gasUsd,
			ProtocolFeeUsd: agg.protocolUsd,
			TotalUsd:       agg.gasUsd + agg.protocolUsd,
		},
		EstimatedOutput: amount * in.EthPrice * agg.outputFactor,
		TimeEstimate:    agg.timeEstimate,
		MEVRisk:         agg.mev,
		Action: PathAction{
			Label:    agg.label,
			URL:      DeepLink(agg.linkID, agg.provider, in.TokenIn, in.TokenOut, in.AmountIn),
			Provider: agg.provider,
		},
		QuoteKind: QuoteIllustrative,
	}
}

// rank sorts paths ascending by total cost and fills in savings. Ties keep
// their input order.
func rank(paths []SwapPath) {
	if len(paths) == 0 {
		return
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].TotalCost.TotalUsd < paths[j].TotalCost.TotalUsd
	})

	maxCost := paths[len(paths)-1].TotalCost.TotalUsd
	for i := range paths {
		savings := maxCost - paths[i].TotalCost.TotalUsd
		paths[i].SavingsUsd = savings
		paths[i].SavingsPercent = 0
		if maxCost > 0 {
			paths[i].SavingsPercent = savings / maxCost * 100
		}
		paths[i].IsBest = i == 0
	}
}

// FormatSavings renders a savings amount for display
func FormatSavings(savingsUsd, savingsPercent float64) string {
	if savingsUsd < 0.01 {
		return "No savings"
	}
	return fmt.Sprintf("Save $%.2f (%.1f%%)", savingsUsd, savingsPercent)
}
