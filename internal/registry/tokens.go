// Package registry holds the static token, protocol and fee tables GasLens
// compares against. All address comparisons are case-insensitive.
package registry

import "strings"

// Well-known Ethereum mainnet addresses
const (
	ETHAddress  = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"
	WETHAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	WBTCAddress = "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"
	USDCAddress = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	USDTAddress = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	DAIAddress  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
)

// Token categories
const (
	CategoryStablecoin = "stablecoin"
	CategoryMajor      = "major"
	CategoryDeFi       = "defi"
	CategoryLayer2     = "layer2"
	CategoryMeme       = "meme"
	CategoryExchange   = "exchange"
)

// Token is an ERC-20 (or native) asset on Ethereum mainnet
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	Category string `json:"category"`
}

var majorTokens = []Token{
	{ETHAddress, "ETH", "Ethereum", 18, CategoryMajor},
	{WETHAddress, "WETH", "Wrapped Ether", 18, CategoryMajor},
	{WBTCAddress, "WBTC", "Wrapped Bitcoin", 8, CategoryMajor},
	{"0x7D1AfA7B718fb893dB30A3aBc0Cfc608AaCfeBB0", "MATIC", "Polygon", 18, CategoryMajor},
	{"0xB8c77482e45F1F44dE1745F52C74426C631bDD52", "BNB", "Binance Coin", 18, CategoryMajor},
}

var stablecoins = []Token{
	{USDCAddress, "USDC", "USD Coin", 6, CategoryStablecoin},
	{USDTAddress, "USDT", "Tether USD", 6, CategoryStablecoin},
	{DAIAddress, "DAI", "Dai Stablecoin", 18, CategoryStablecoin},
	{"0x853d955aCEf822Db058eb8505911ED77F175b99e", "FRAX", "Frax", 18, CategoryStablecoin},
	{"0x4Fabb145d64652a948d72533023f6E7A623C7C53", "BUSD", "Binance USD", 18, CategoryStablecoin},
	{"0x056Fd409E1d7A124BD7017459dFEa2F387b6d5Cd", "GUSD", "Gemini Dollar", 2, CategoryStablecoin},
}

var defiTokens = []Token{
	{"0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", "UNI", "Uniswap", 18, CategoryDeFi},
	{"0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9", "AAVE", "Aave", 18, CategoryDeFi},
	{"0x514910771AF9Ca656af840dff83E8264EcF986CA", "LINK", "Chainlink", 18, CategoryDeFi},
	{"0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2", "MKR", "Maker", 18, CategoryDeFi},
	{"0xc00e94Cb662C3520282E6f5717214004A7f26888", "COMP", "Compound", 18, CategoryDeFi},
	{"0xD533a949740bb3306d119CC777fa900bA034cd52", "CRV", "Curve DAO Token", 18, CategoryDeFi},
	{"0xC011a73ee8576Fb46F5E1c5751cA3B9Fe0af2a6F", "SNX", "Synthetix", 18, CategoryDeFi},
	{"0x0bc529c00C6401aEF6D220BE8C6Ea1667F6Ad93e", "YFI", "yearn.finance", 18, CategoryDeFi},
	{"0x6B3595068778DD592e39A122f4f5a5cF09C90fE2", "SUSHI", "SushiSwap", 18, CategoryDeFi},
	{"0xba100000625a3754423978a60c9317c58a424e3D", "BAL", "Balancer", 18, CategoryDeFi},
}

var layer2Tokens = []Token{
	{"0x912CE59144191C1204E64559FE8253a0e49E6548", "ARB", "Arbitrum", 18, CategoryLayer2},
	{"0x4200000000000000000000000000000000000042", "OP", "Optimism", 18, CategoryLayer2},
	{"0xF57e7e7C23978C3cAEC3C3548E3D615c346e79fF", "IMX", "Immutable X", 18, CategoryLayer2},
}

var memeTokens = []Token{
	{"0x95aD61b0a150d79219dCF64E1E6Cc01f0B64C4cE", "SHIB", "Shiba Inu", 18, CategoryMeme},
	{"0x6982508145454Ce325dDbE47a25d4ec3d2311933", "PEPE", "Pepe", 18, CategoryMeme},
	{"0xcf0C122c6b73ff809C693DB761e7BaeBe62b6a2E", "FLOKI", "Floki Inu", 9, CategoryMeme},
	{"0x4d224452801ACEd8B2F0aebE155379bb5D594381", "APE", "ApeCoin", 18, CategoryMeme},
}

var exchangeTokens = []Token{
	{"0x50D1c9771902476076eCFc8B2A83Ad6b9355a4c9", "FTT", "FTX Token", 18, CategoryExchange},
	{"0x75231F58b43240C9718Dd58B4967c5114342a86c", "OKB", "OKB", 18, CategoryExchange},
}

var allTokens = concat(majorTokens, stablecoins, defiTokens, layer2Tokens, memeTokens, exchangeTokens)

// Tokens returns every registered token. The slice is a copy.
func Tokens() []Token {
	return append([]Token(nil), allTokens...)
}

// TokensByCategory returns the tokens in one category
func TokensByCategory(category string) []Token {
	out := []Token{}
	for _, t := range allTokens {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// TokenBySymbol finds a token by symbol, case-insensitively. First match wins.
func TokenBySymbol(symbol string) (Token, bool) {
	for _, t := range allTokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

// TokenByAddress finds a token by address, case-insensitively
func TokenByAddress(address string) (Token, bool) {
	for _, t := range allTokens {
		if strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return Token{}, false
}

// ResolveAddress maps a symbol to its registered address. Unknown symbols are
// returned unchanged so they can still be matched against raw addresses.
func ResolveAddress(symbol string) string {
	if t, ok := TokenBySymbol(symbol); ok {
		return t.Address
	}
	return symbol
}

// linkAddresses are the token identifiers swap front-ends accept in URLs
var linkAddresses = map[string]string{
	"ETH":  "ETH",
	"WETH": WETHAddress,
	"USDC": USDCAddress,
	"USDT": USDTAddress,
	"DAI":  DAIAddress,
}

// LinkAddress returns the identifier to put in a swap deep link for symbol
func LinkAddress(symbol string) string {
	if addr, ok := linkAddresses[strings.ToUpper(symbol)]; ok {
		return addr
	}
	return symbol
}

func concat(lists ...[]Token) []Token {
	var out []Token
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
