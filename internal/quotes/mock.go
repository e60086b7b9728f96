package quotes

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	mockFee         = 0.003
	mockGasEstimate = 150000
	defaultGasPrice = 35
)

var mockRates = map[string]float64{
	"ETH-USDC": 2000,
	"ETH-USDT": 2000,
	"ETH-DAI":  2000,
	"USDC-ETH": 0.0005,
	"USDT-ETH": 0.0005,
	"WBTC-ETH": 21,
	"ETH-WBTC": 0.048,
}

// MockQuotes returns the deterministic 1inch and 0x stand-ins for req
func MockQuotes(req Request) []Quote {
	return []Quote{
		mockQuote("1inch", "1inch", req),
		mockQuote("0x (Matcha)", "0x", req),
	}
}

func mockQuote(protocol, protocolID string, req Request) Quote {
	rate, ok := mockRates[strings.ToUpper(req.TokenIn)+"-"+strings.ToUpper(req.TokenOut)]
	if !ok {
		rate = 1
	}
	return Quote{
		Protocol:     protocol,
		ProtocolID:   protocolID,
		FromToken:    req.TokenIn,
		ToToken:      req.TokenOut,
		FromAmount:   formatAmount(req.Amount),
		ToAmount:     fmt.Sprintf("%.6f", req.Amount*rate*(1-mockFee)),
		EstimatedGas: mockGasEstimate,
		GasPriceGwei: defaultGasPrice,
		PriceImpact:  0,
		Route:        []string{protocol},
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
