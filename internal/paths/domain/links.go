package domain

import (
	"net/url"
	"strings"

	"github.com/gaslens/gaslens/internal/registry"
)

type linkBuilder func(tokenIn, tokenOut, amount string) string

// deepLinks build swap URLs per protocol. Every interpolated value is escaped.
var deepLinks = map[string]linkBuilder{
	"uniswap-v3": func(in, out, amount string) string {
		return "https://app.uniswap.org/#/swap?inputCurrency=" + esc(registry.LinkAddress(in)) +
			"&outputCurrency=" + esc(registry.LinkAddress(out)) + "&exactAmount=" + esc(amount)
	},
	"curve": func(in, out, amount string) string {
		return "https://curve.fi/#/ethereum/swap?from=" + esc(in) + "&to=" + esc(out) + "&amount=" + esc(amount)
	},
	"sushiswap": func(in, out, amount string) string {
		return "https://www.sushi.com/swap?fromCurrency=" + esc(registry.LinkAddress(in)) +
			"&toCurrency=" + esc(registry.LinkAddress(out)) + "&fromAmount=" + esc(amount)
	},
	"chainflip": func(in, out, amount string) string {
		return "https://swap.chainflip.io/?from=" + esc(in) + "&to=" + esc(out) + "&amount=" + esc(amount)
	},
	"relay": func(in, out, amount string) string {
		return "https://relay.link/swap?from=" + esc(in) + "&to=" + esc(out) + "&amount=" + esc(amount)
	},
	"1inch": func(in, out, amount string) string {
		return "https://app.1inch.io/#/1/simple/swap/" + esc(registry.LinkAddress(in)) + "/" +
			esc(registry.LinkAddress(out)) + "?sourceTokenAmount=" + esc(amount)
	},
	"matcha": func(in, out, amount string) string {
		return "https://matcha.xyz/tokens/ethereum/" + esc(registry.LinkAddress(out)) +
			"?sellAmount=" + esc(amount) + "&sellToken=" + esc(registry.LinkAddress(in))
	},
}

// DeepLink returns the swap URL for protocolID, or a homepage guess built
// from protocolName when no builder exists.
func DeepLink(protocolID, protocolName, tokenIn, tokenOut, amount string) string {
	if build, ok := deepLinks[protocolID]; ok {
		return build(tokenIn, tokenOut, amount)
	}
	host := strings.Join(strings.Fields(strings.ToLower(protocolName)), "")
	return "https://" + host + ".com"
}

// esc percent-encodes s for use in a URL component, spaces as %20
func esc(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var mevRatings = map[string]MEVRisk{
	"curve":      MEVLow,
	"chainflip":  MEVLow,
	"relay":      MEVLow,
	"uniswap-v3": MEVMedium,
	"sushiswap":  MEVMedium,
	"1inch":      MEVMedium,
}

// MEVRiskFor rates a protocol; unknown protocols are high risk
func MEVRiskFor(protocolID string) MEVRisk {
	if risk, ok := mevRatings[protocolID]; ok {
		return risk
	}
	return MEVHigh
}
