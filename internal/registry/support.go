package registry

import (
	"sort"
	"strings"
)

var (
	stablecoinAddresses = addressesOf(stablecoins)
	majorAddresses      = addressesOf(majorTokens)
	defiAddresses       = addressesOf(defiTokens)

	allPopular = union(
		stablecoinAddresses,
		majorAddresses,
		defiAddresses,
		addressesOf(memeTokens),
	)

	crossChainAssets = lowerAll(ETHAddress, WETHAddress, WBTCAddress, USDCAddress, USDTAddress, DAIAddress)

	// safelist applies to protocols missing from the support matrix
	safelist = union(stablecoinAddresses, lowerAll(ETHAddress, WETHAddress, WBTCAddress))
)

var supportMatrix = map[string]map[string]struct{}{
	"uniswap-v3": allPopular,
	"uniswap-v2": allPopular,
	"sushiswap":  allPopular,
	"1inch":      allPopular,
	"0x":         allPopular,
	"curve":      union(stablecoinAddresses, lowerAll(ETHAddress, WETHAddress, WBTCAddress)),
	"balancer":   union(stablecoinAddresses, majorAddresses, defiAddresses),
	"chainflip":  crossChainAssets,
	"relay":      crossChainAssets,
}

// SupportsToken reports whether protocol can trade tokenAddress
func SupportsToken(protocol, tokenAddress string) bool {
	supported, ok := supportMatrix[strings.ToLower(protocol)]
	if !ok {
		supported = safelist
	}
	_, found := supported[strings.ToLower(tokenAddress)]
	return found
}

// SupportsPair reports whether protocol can trade both addresses
func SupportsPair(protocol, fromAddress, toAddress string) bool {
	return SupportsToken(protocol, fromAddress) && SupportsToken(protocol, toAddress)
}

// ProtocolsForPair lists the protocols in the support matrix that can trade
// the pair, sorted by id.
func ProtocolsForPair(fromAddress, toAddress string) []string {
	out := []string{}
	for protocol := range supportMatrix {
		if SupportsPair(protocol, fromAddress, toAddress) {
			out = append(out, protocol)
		}
	}
	sort.Strings(out)
	return out
}

// UnsupportedPairReason explains why protocol cannot trade the pair, or
// returns "" when it can.
func UnsupportedPairReason(protocol, fromAddress, toAddress string) string {
	supportsFrom := SupportsToken(protocol, fromAddress)
	supportsTo := SupportsToken(protocol, toAddress)

	switch {
	case supportsFrom && supportsTo:
		return ""
	case !supportsFrom && !supportsTo:
		return protocol + " doesn't support either token in this pair"
	case !supportsFrom:
		return protocol + " doesn't support the source token"
	default:
		return protocol + " doesn't support the destination token"
	}
}

func addressesOf(tokens []Token) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(t.Address)] = struct{}{}
	}
	return set
}

func lowerAll(addrs ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[strings.ToLower(a)] = struct{}{}
	}
	return set
}

func union(sets ...map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range sets {
		for k := range s {
			out[k] = struct{}{}
		}
	}
	return out
}
