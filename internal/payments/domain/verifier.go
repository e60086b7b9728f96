package domain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/gaslens/gaslens/internal/explorer"
	"github.com/gaslens/gaslens/internal/registry"
)

const (
	ethDecimals  = 18
	usdcDecimals = 6
)

// transferSelector is the ERC-20 transfer(address,uint256) selector, 0xa9059cbb
var transferSelector = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]

// Explorer is the block explorer access the verifier needs
type Explorer interface {
	Configured() bool
	TransactionReceipt(ctx context.Context, txHash string) (*explorer.Receipt, error)
	TransactionByHash(ctx context.Context, txHash string) (*explorer.Transaction, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Policy is the acceptance policy for a payment
type Policy struct {
	TreasuryAddress  string
	MinConfirmations int
	// Tolerance is the accepted fraction below or above the expected amount
	Tolerance float64
}

// Details describes a verified transfer
type Details struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Value         string `json:"value"`
	BlockNumber   uint64 `json:"blockNumber"`
	Confirmations int64  `json:"confirmations"`
}

// Verification is the outcome of checking one transaction. Error is set when
// Valid is false and is safe to show to the payer.
type Verification struct {
	Valid   bool     `json:"valid"`
	Error   string   `json:"error,omitempty"`
	Details *Details `json:"details,omitempty"`
}

func rejected(format string, args ...any) Verification {
	return Verification{Error: fmt.Sprintf(format, args...)}
}

// Verifier checks claimed payments against the chain. Checks run in a fixed
// order and stop at the first failure.
type Verifier struct {
	explorer Explorer
	policy   Policy
	logger   *slog.Logger
}

// NewVerifier creates a payment verifier
func NewVerifier(exp Explorer, policy Policy, logger *slog.Logger) *Verifier {
	return &Verifier{explorer: exp, policy: policy, logger: logger}
}

func (v *Verifier) treasury() string {
	return strings.ToLower(v.policy.TreasuryAddress)
}

// preflight checks configuration and that the transaction executed
func (v *Verifier) preflight(ctx context.Context, txHash string) (*explorer.Receipt, *Verification) {
	if !v.explorer.Configured() {
		r := rejected("Etherscan API not configured")
		return nil, &r
	}
	if t := v.policy.TreasuryAddress; t == "" || common.HexToAddress(t) == (common.Address{}) {
		r := rejected("Treasury wallet not configured")
		return nil, &r
	}

	receipt, err := v.explorer.TransactionReceipt(ctx, txHash)
	if errors.Is(err, explorer.ErrNotFound) {
		r := rejected("Transaction not found on Ethereum mainnet")
		return nil, &r
	}
	if err != nil {
		r := v.upstreamFailure("receipt", txHash, err)
		return nil, &r
	}
	if !receipt.Succeeded() {
		r := rejected("Transaction failed on-chain")
		return nil, &r
	}
	if receipt.IsError {
		r := rejected("Transaction contains errors")
		return nil, &r
	}
	return receipt, nil
}

func (v *Verifier) transaction(ctx context.Context, txHash string) (*explorer.Transaction, *Verification) {
	tx, err := v.explorer.TransactionByHash(ctx, txHash)
	if errors.Is(err, explorer.ErrNotFound) {
		r := rejected("Could not fetch transaction details")
		return nil, &r
	}
	if err != nil {
		r := v.upstreamFailure("transaction", txHash, err)
		return nil, &r
	}
	return tx, nil
}

func (v *Verifier) confirmations(ctx context.Context, txHash string, receipt *explorer.Receipt) (int64, *Verification) {
	head, err := v.explorer.BlockNumber(ctx)
	if err != nil {
		r := v.upstreamFailure("block number", txHash, err)
		return 0, &r
	}
	confirmations := int64(head) - int64(receipt.BlockNumber)
	if confirmations < int64(v.policy.MinConfirmations) {
		r := rejected("Insufficient confirmations: %d/%d. Please wait.", confirmations, v.policy.MinConfirmations)
		return confirmations, &r
	}
	return confirmations, nil
}

// upstreamFailure hides explorer errors, which can carry request URLs, from
// the payer.
func (v *Verifier) upstreamFailure(step, txHash string, err error) Verification {
	v.logger.Warn("explorer lookup failed", "step", step, "txHash", txHash, "error", err)
	return rejected("Verification failed")
}

func (v *Verifier) minAcceptable(expectedUSD float64) decimal.Decimal {
	return decimal.NewFromFloat(expectedUSD).Mul(decimal.NewFromFloat(1 - v.policy.Tolerance))
}

func (v *Verifier) maxAcceptable(expectedUSD float64) decimal.Decimal {
	return decimal.NewFromFloat(expectedUSD).Mul(decimal.NewFromFloat(1 + v.policy.Tolerance))
}

// VerifyEth checks a native ETH transfer to the treasury worth at least
// expectedUSD, less the tolerance, at ethPriceUSD.
func (v *Verifier) VerifyEth(ctx context.Context, txHash string, expectedUSD, ethPriceUSD float64) Verification {
	receipt, fail := v.preflight(ctx, txHash)
	if fail != nil {
		return *fail
	}
	tx, fail := v.transaction(ctx, txHash)
	if fail != nil {
		return *fail
	}

	if !strings.EqualFold(tx.To, v.policy.TreasuryAddress) {
		return rejected("Payment sent to wrong address. Expected %s, got %s", v.treasury(), displayAddress(tx.To))
	}

	confirmations, fail := v.confirmations(ctx, txHash, receipt)
	if fail != nil {
		return *fail
	}

	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	paidEth := decimal.NewFromBigInt(value, -ethDecimals)
	paidUSD := paidEth.Mul(decimal.NewFromFloat(ethPriceUSD))

	if paidUSD.LessThan(v.minAcceptable(expectedUSD)) {
		return rejected("Insufficient payment: $%.2f sent, $%v required", paidUSD.InexactFloat64(), expectedUSD)
	}
	if paidUSD.GreaterThan(v.maxAcceptable(expectedUSD)) {
		v.logger.Warn("overpayment detected",
			"txHash", txHash,
			"paidUsd", paidUSD.StringFixed(2),
			"expectedUsd", expectedUSD,
		)
	}

	return Verification{
		Valid: true,
		Details: &Details{
			From:          tx.From,
			To:            tx.To,
			Value:         paidEth.String(),
			BlockNumber:   receipt.BlockNumber,
			Confirmations: confirmations,
		},
	}
}

// VerifyUsdc checks an ERC-20 transfer call on the USDC contract that pays
// the treasury at least expectedUSD, less the tolerance.
func (v *Verifier) VerifyUsdc(ctx context.Context, txHash string, expectedUSD float64) Verification {
	receipt, fail := v.preflight(ctx, txHash)
	if fail != nil {
		return *fail
	}
	tx, fail := v.transaction(ctx, txHash)
	if fail != nil {
		return *fail
	}

	if !strings.EqualFold(tx.To, registry.USDCAddress) {
		return rejected("Transaction is not a USDC transfer")
	}

	recipient, amount, ok := decodeTransfer(tx.Input)
	if !ok {
		return rejected("Not a USDC transfer transaction")
	}
	recipientHex := strings.ToLower(recipient.Hex())
	if recipientHex != v.treasury() {
		return rejected("USDC sent to wrong address. Expected %s, got %s", v.treasury(), recipientHex)
	}

	confirmations, fail := v.confirmations(ctx, txHash, receipt)
	if fail != nil {
		return *fail
	}

	paid := decimal.NewFromBigInt(amount, -usdcDecimals)
	if paid.LessThan(v.minAcceptable(expectedUSD)) {
		return rejected("Insufficient payment: $%.2f USDC sent, $%v required", paid.InexactFloat64(), expectedUSD)
	}

	return Verification{
		Valid: true,
		Details: &Details{
			From:          tx.From,
			To:            recipientHex,
			Value:         paid.String(),
			BlockNumber:   receipt.BlockNumber,
			Confirmations: confirmations,
		},
	}
}

// decodeTransfer extracts the recipient and amount from transfer call data:
// a 4-byte selector followed by two 32-byte words.
func decodeTransfer(input []byte) (common.Address, *big.Int, bool) {
	if len(input) < 4+64 || !bytes.Equal(input[:4], transferSelector) {
		return common.Address{}, nil, false
	}
	recipient := common.BytesToAddress(input[4:36])
	amount := new(big.Int).SetBytes(input[36:68])
	return recipient, amount, true
}

func displayAddress(addr string) string {
	if addr == "" {
		return "none"
	}
	return addr
}
