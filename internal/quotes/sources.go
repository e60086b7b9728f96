package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/gaslens/gaslens/internal/registry"
	"github.com/gaslens/gaslens/internal/upstream"
)

// quoteDecimals is applied to every token; the aggregator APIs are called
// with 18-decimal base units regardless of the token.
const quoteDecimals = 18

// OneInch quotes swaps through the 1inch swap API
type OneInch struct {
	apiKey  string
	baseURL string
	fetcher *upstream.Fetcher
}

// NewOneInch creates a 1inch source
func NewOneInch(apiKey, baseURL string, fetcher *upstream.Fetcher) *OneInch {
	return &OneInch{apiKey: apiKey, baseURL: baseURL, fetcher: fetcher}
}

func (s *OneInch) Name() string { return "1inch" }

type oneInchResponse struct {
	ToAmount  json.Number `json:"toAmount"`
	Gas       json.Number `json:"gas"`
	Protocols [][][]struct {
		Name string `json:"name"`
	} `json:"protocols"`
}

func (s *OneInch) Quote(ctx context.Context, req Request) (*Quote, error) {
	if s.apiKey == "" {
		return nil, ErrNotConfigured
	}
	amount, err := baseUnits(req.RawAmount)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("src", registry.ResolveAddress(req.TokenIn))
	params.Set("dst", registry.ResolveAddress(req.TokenOut))
	params.Set("amount", amount)

	var resp oneInchResponse
	err = s.fetcher.GetJSON(ctx, upstream.Request{
		Source:  "1inch",
		URL:     s.baseURL + "/quote?" + params.Encode(),
		Headers: map[string]string{"Authorization": "Bearer " + s.apiKey},
		Retry:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	toAmount, err := fromBaseUnits(resp.ToAmount)
	if err != nil {
		return nil, fmt.Errorf("1inch toAmount: %w", err)
	}

	route := []string{}
	if len(resp.Protocols) > 0 {
		for _, hop := range resp.Protocols[0] {
			if len(hop) > 0 {
				route = append(route, hop[0].Name)
			}
		}
	}

	return &Quote{
		Protocol:     "1inch",
		ProtocolID:   "1inch",
		FromToken:    req.TokenIn,
		ToToken:      req.TokenOut,
		FromAmount:   formatAmount(req.Amount),
		ToAmount:     toAmount,
		EstimatedGas: intOr(resp.Gas, mockGasEstimate),
		GasPriceGwei: defaultGasPrice,
		Route:        route,
	}, nil
}

// ZeroX quotes swaps through the 0x swap API
type ZeroX struct {
	apiKey  string
	baseURL string
	fetcher *upstream.Fetcher
}

// NewZeroX creates a 0x source
func NewZeroX(apiKey, baseURL string, fetcher *upstream.Fetcher) *ZeroX {
	return &ZeroX{apiKey: apiKey, baseURL: baseURL, fetcher: fetcher}
}

func (s *ZeroX) Name() string { return "0x" }

type zeroXResponse struct {
	BuyAmount            json.Number `json:"buyAmount"`
	EstimatedGas         json.Number `json:"estimatedGas"`
	GasPrice             json.Number `json:"gasPrice"`
	EstimatedPriceImpact json.Number `json:"estimatedPriceImpact"`
	Sources              []struct {
		Name       string      `json:"name"`
		Proportion json.Number `json:"proportion"`
	} `json:"sources"`
}

func (s *ZeroX) Quote(ctx context.Context, req Request) (*Quote, error) {
	if s.apiKey == "" {
		return nil, ErrNotConfigured
	}
	amount, err := baseUnits(req.RawAmount)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("sellToken", registry.ResolveAddress(req.TokenIn))
	params.Set("buyToken", registry.ResolveAddress(req.TokenOut))
	params.Set("sellAmount", amount)

	var resp zeroXResponse
	err = s.fetcher.GetJSON(ctx, upstream.Request{
		Source:  "0x",
		URL:     s.baseURL + "/quote?" + params.Encode(),
		Headers: map[string]string{"0x-api-key": s.apiKey},
		Retry:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	toAmount, err := fromBaseUnits(resp.BuyAmount)
	if err != nil {
		return nil, fmt.Errorf("0x buyAmount: %w", err)
	}

	gasPrice := float64(defaultGasPrice)
	if wei, err := decimal.NewFromString(resp.GasPrice.String()); err == nil && wei.IsPositive() {
		gasPrice = wei.Shift(-9).InexactFloat64()
	}
	impact, _ := resp.EstimatedPriceImpact.Float64()

	route := []string{}
	for _, src := range resp.Sources {
		if p, err := src.Proportion.Float64(); err == nil && p > 0 {
			route = append(route, src.Name)
		}
	}

	return &Quote{
		Protocol:     "0x (Matcha)",
		ProtocolID:   "0x",
		FromToken:    req.TokenIn,
		ToToken:      req.TokenOut,
		FromAmount:   formatAmount(req.Amount),
		ToAmount:     toAmount,
		EstimatedGas: intOr(resp.EstimatedGas, mockGasEstimate),
		GasPriceGwei: gasPrice,
		PriceImpact:  impact,
		Route:        route,
	}, nil
}

// baseUnits converts a decimal amount to an integer string of base units,
// truncating anything below one unit.
func baseUnits(raw string) (string, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d.Shift(quoteDecimals).Truncate(0).String(), nil
}

func fromBaseUnits(n json.Number) (string, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return "", err
	}
	return d.Shift(-quoteDecimals).StringFixed(6), nil
}

func intOr(n json.Number, fallback int64) int64 {
	v, err := n.Int64()
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
