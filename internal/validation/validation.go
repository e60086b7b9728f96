// Package validation provides input validation for GasLens.
package validation

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/mod/semver"
)

const (
	// MaxAmount is the largest accepted swap amount
	MaxAmount = 1_000_000
	// MaxGasPriceGwei is the largest accepted gas price override
	MaxGasPriceGwei = 10_000
	// MaxPriceIDs caps the ids accepted by the token price endpoint
	MaxPriceIDs = 20
)

var (
	txHashRegex      = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
	tokenSymbolRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	quoteAmountRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)
	priceIDRegex     = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// ValidateTxHash validates a 0x-prefixed 32-byte transaction hash
func ValidateTxHash(hash string) error {
	if !txHashRegex.MatchString(hash) {
		return errors.New("invalid transaction hash: must be 0x followed by 64 hex characters")
	}
	return nil
}

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	if !common.IsHexAddress(addr) {
		return errors.New("invalid address: contains non-hex characters")
	}
	return nil
}

// ValidateTokenSymbol validates a token symbol: alphanumeric, at most 20 chars
func ValidateTokenSymbol(symbol string) error {
	if symbol == "" {
		return errors.New("token symbol is required")
	}
	if !tokenSymbolRegex.MatchString(symbol) {
		return errors.New("token must contain only alphanumeric characters")
	}
	if len(symbol) > 20 {
		return errors.New("token symbol too long")
	}
	return nil
}

// ParseAmount parses a swap amount in (0, MaxAmount]
func ParseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("amount must be a number")
	}
	if v <= 0 {
		return 0, errors.New("amount must be positive")
	}
	if v > MaxAmount {
		return 0, errors.New("amount exceeds maximum")
	}
	return v, nil
}

// ParseGasPrice parses an optional gas price override in gwei.
// An empty value returns 0 and no error.
func ParseGasPrice(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("gas price must be a number")
	}
	if v <= 0 {
		return 0, errors.New("gas price must be positive")
	}
	if v > MaxGasPriceGwei {
		return 0, errors.New("gas price exceeds maximum")
	}
	return v, nil
}

// ValidateQuoteToken validates a quote token, which may be a symbol or an address
func ValidateQuoteToken(token string) error {
	if len(token) < 1 || len(token) > 42 {
		return errors.New("token must be between 1 and 42 characters")
	}
	return nil
}

// ParseQuoteAmount parses a plain decimal quote amount such as "1" or "0.5"
func ParseQuoteAmount(raw string) (float64, error) {
	if !quoteAmountRegex.MatchString(raw) {
		return 0, errors.New("amount must be a decimal number")
	}
	return strconv.ParseFloat(raw, 64)
}

// SanitizePriceIDs splits a comma separated id list, lowercases it and keeps
// only well-formed ids, up to MaxPriceIDs.
func SanitizePriceIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.ToLower(strings.TrimSpace(part))
		if id == "" || !priceIDRegex.MatchString(id) {
			continue
		}
		ids = append(ids, id)
		if len(ids) == MaxPriceIDs {
			break
		}
	}
	return ids
}

// ValidateVersion validates a semantic version string
func ValidateVersion(v string) error {
	normalized := NormalizeVersion(v)
	if normalized == "" {
		return errors.New("version cannot be empty")
	}
	if !semver.IsValid("v" + normalized) {
		return errors.New("invalid semver version: must be in format X.Y.Z or X.Y.Z-prerelease")
	}
	return nil
}

// NormalizeVersion normalizes a version string (strips leading 'v')
func NormalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// CompareVersions compares two versions
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	n1 := "v" + NormalizeVersion(v1)
	n2 := "v" + NormalizeVersion(v2)
	return semver.Compare(n1, n2)
}
