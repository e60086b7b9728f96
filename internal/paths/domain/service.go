package domain

import (
	"context"

	"github.com/gaslens/gaslens/internal/fees"
	"github.com/gaslens/gaslens/internal/gas"
	"github.com/gaslens/gaslens/internal/observability/metrics"
	"github.com/gaslens/gaslens/internal/prices"
)

// Service compares swap routes for a validated fee request
type Service interface {
	Compare(ctx context.Context, req CompareRequest) (*Comparison, error)
}

// FeeQuoter prices a fee request against live market inputs
type FeeQuoter interface {
	Quote(ctx context.Context, req fees.Request) *fees.Quote
}

// CompareRequest is a fee request plus route options
type CompareRequest struct {
	fees.Request
	// RawAmount is echoed into deep links exactly as the caller sent it
	RawAmount          string
	IncludeAggregators bool
}

// Comparison is a ranked route list and the market inputs behind it
type Comparison struct {
	Paths        []SwapPath
	EthPrice     prices.PriceQuote
	GasPriceGwei float64
	GasSource    gas.Source
}

type service struct {
	quoter FeeQuoter
}

// NewService creates a path comparison service.
func NewService(quoter FeeQuoter) *service {
	return &service{quoter: quoter}
}

// Compare prices the request and ranks the resulting routes.
func (s *service) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	quote := s.quoter.Quote(ctx, req.Request)

	paths := BuildSwapPaths(Input{
		Fees:               quote.Fees,
		TokenIn:            req.TokenIn,
		TokenOut:           req.TokenOut,
		AmountIn:           req.RawAmount,
		EthPrice:           quote.EthPrice.USD,
		GasPriceGwei:       quote.GasPriceGwei,
		IncludeAggregators: req.IncludeAggregators,
	})
	metrics.SwapPathsBuilt(len(paths))

	return &Comparison{
		Paths:        paths,
		EthPrice:     quote.EthPrice,
		GasPriceGwei: quote.GasPriceGwei,
		GasSource:    quote.GasSource,
	}, nil
}
