package fees

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/gaslens/gaslens/internal/gas"
	"github.com/gaslens/gaslens/internal/prices"
	"github.com/gaslens/gaslens/internal/validation"
)

// ErrInvalidRequest wraps every query validation failure
var ErrInvalidRequest = errors.New("invalid request")

// Request is a validated fee query
type Request struct {
	TokenIn  string
	TokenOut string
	AmountIn float64
	// GasPriceGwei is zero when the caller did not override it
	GasPriceGwei float64
}

// ParseRequest validates tokenIn, tokenOut, amountIn and the optional gasPrice
func ParseRequest(q url.Values) (Request, error) {
	req := Request{
		TokenIn:  q.Get("tokenIn"),
		TokenOut: q.Get("tokenOut"),
	}
	rawAmount := q.Get("amountIn")
	if req.TokenIn == "" || req.TokenOut == "" || rawAmount == "" {
		return Request{}, fmt.Errorf("%w: tokenIn, tokenOut, and amountIn are required", ErrInvalidRequest)
	}

	if err := validation.ValidateTokenSymbol(req.TokenIn); err != nil {
		return Request{}, fmt.Errorf("%w: tokenIn: %v", ErrInvalidRequest, err)
	}
	if err := validation.ValidateTokenSymbol(req.TokenOut); err != nil {
		return Request{}, fmt.Errorf("%w: tokenOut: %v", ErrInvalidRequest, err)
	}

	amount, err := validation.ParseAmount(rawAmount)
	if err != nil {
		return Request{}, fmt.Errorf("%w: amountIn: %v", ErrInvalidRequest, err)
	}
	req.AmountIn = amount

	gasPrice, err := validation.ParseGasPrice(q.Get("gasPrice"))
	if err != nil {
		return Request{}, fmt.Errorf("%w: gasPrice: %v", ErrInvalidRequest, err)
	}
	req.GasPriceGwei = gasPrice

	return req, nil
}

// PriceReader supplies the ETH/USD price
type PriceReader interface {
	EthPrice(ctx context.Context) prices.PriceQuote
}

// Quote is a computed fee table plus the inputs it was priced with
type Quote struct {
	Fees         []ProtocolFee
	EthPrice     prices.PriceQuote
	GasPriceGwei float64
	GasSource    gas.Source
}

// Service prices fee queries against live market inputs
type Service struct {
	gas    gas.Reader
	prices PriceReader
}

// NewService creates a fee service
func NewService(gasReader gas.Reader, priceReader PriceReader) *Service {
	return &Service{gas: gasReader, prices: priceReader}
}

// Quote prices req. A caller-supplied gas price wins; otherwise the oracle's
// standard price is used, or DefaultGasPriceGwei when the oracle is down.
func (s *Service) Quote(ctx context.Context, req Request) *Quote {
	q := &Quote{GasPriceGwei: req.GasPriceGwei, GasSource: "request"}
	if q.GasPriceGwei <= 0 {
		reading := s.gas.Current(ctx)
		q.GasSource = reading.Source
		q.GasPriceGwei = DefaultGasPriceGwei
		if reading.Live() && reading.Price.Standard > 0 {
			q.GasPriceGwei = reading.Price.Standard
		}
	}

	q.EthPrice = s.prices.EthPrice(ctx)
	q.Fees = Compute(req.AmountIn, q.GasPriceGwei, q.EthPrice.USD)
	return q
}
