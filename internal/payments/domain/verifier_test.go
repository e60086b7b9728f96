package domain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaslens/gaslens/internal/explorer"
	"github.com/gaslens/gaslens/internal/registry"
)

const (
	testTreasury = "0xABCDEF0000000000000000000000000000000001"
	testPayer    = "0x2222222222222222222222222222222222222222"
	testTxHash   = "0x1111111111111111111111111111111111111111111111111111111111111111"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeExplorer struct {
	configured bool
	receipt    *explorer.Receipt
	receiptErr error
	tx         *explorer.Transaction
	txErr      error
	head       uint64
	headErr    error

	txCalls   int
	headCalls int
}

func (f *fakeExplorer) Configured() bool { return f.configured }

func (f *fakeExplorer) TransactionReceipt(ctx context.Context, txHash string) (*explorer.Receipt, error) {
	return f.receipt, f.receiptErr
}

func (f *fakeExplorer) TransactionByHash(ctx context.Context, txHash string) (*explorer.Transaction, error) {
	f.txCalls++
	return f.tx, f.txErr
}

func (f *fakeExplorer) BlockNumber(ctx context.Context) (uint64, error) {
	f.headCalls++
	return f.head, f.headErr
}

func wei(eth string) *big.Int {
	return decimal.RequireFromString(eth).Shift(18).BigInt()
}

func ethExplorer(value *big.Int) *fakeExplorer {
	return &fakeExplorer{
		configured: true,
		receipt:    &explorer.Receipt{Status: "0x1", BlockNumber: 100},
		tx: &explorer.Transaction{
			Hash:  testTxHash,
			From:  testPayer,
			To:    strings.ToLower(testTreasury),
			Value: value,
		},
		head: 110,
	}
}

func transferInput(to string, amount int64) []byte {
	input := common.FromHex("0xa9059cbb")
	input = append(input, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	input = append(input, common.LeftPadBytes(big.NewInt(amount).Bytes(), 32)...)
	return input
}

func usdcExplorer(input []byte) *fakeExplorer {
	return &fakeExplorer{
		configured: true,
		receipt:    &explorer.Receipt{Status: "0x1", BlockNumber: 100},
		tx: &explorer.Transaction{
			Hash:  testTxHash,
			From:  testPayer,
			To:    registry.USDCAddress,
			Value: new(big.Int),
			Input: input,
		},
		head: 110,
	}
}

func newVerifier(exp Explorer) *Verifier {
	return NewVerifier(exp, Policy{TreasuryAddress: testTreasury, MinConfirmations: 3, Tolerance: 0.05}, discardLogger)
}

func TestTransferSelector(t *testing.T) {
	assert.Equal(t, common.FromHex("0xa9059cbb"), transferSelector)
}

func TestVerifier_VerifyEth(t *testing.T) {
	exp := ethExplorer(wei("0.0045"))
	result := newVerifier(exp).VerifyEth(context.Background(), testTxHash, 9, 2000)

	require.True(t, result.Valid, result.Error)
	assert.Equal(t, &Details{
		From:          testPayer,
		To:            strings.ToLower(testTreasury),
		Value:         "0.0045",
		BlockNumber:   100,
		Confirmations: 10,
	}, result.Details)
}

func TestVerifier_VerifyEthRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fakeExplorer)
		policy *Policy
		want   string
	}{
		{"explorer not configured", func(f *fakeExplorer) { f.configured = false }, nil, "Etherscan API not configured"},
		{"no treasury", nil, &Policy{MinConfirmations: 3, Tolerance: 0.05}, "Treasury wallet not configured"},
		{"zero treasury", nil, &Policy{TreasuryAddress: "0x0000000000000000000000000000000000000000"}, "Treasury wallet not configured"},
		{"receipt missing", func(f *fakeExplorer) { f.receiptErr = explorer.ErrNotFound }, nil, "Transaction not found on Ethereum mainnet"},
		{"receipt lookup error", func(f *fakeExplorer) { f.receiptErr = errors.New("dial tcp") }, nil, "Verification failed"},
		{"failed status", func(f *fakeExplorer) { f.receipt.Status = "0x0" }, nil, "Transaction failed on-chain"},
		{"error flag", func(f *fakeExplorer) { f.receipt.IsError = true }, nil, "Transaction contains errors"},
		{"tx missing", func(f *fakeExplorer) { f.txErr = explorer.ErrNotFound }, nil, "Could not fetch transaction details"},
		{"wrong recipient", func(f *fakeExplorer) { f.tx.To = "0x3333333333333333333333333333333333333333" }, nil,
			"Payment sent to wrong address. Expected 0xabcdef0000000000000000000000000000000001, got 0x3333333333333333333333333333333333333333"},
		{"contract creation", func(f *fakeExplorer) { f.tx.To = "" }, nil,
			"Payment sent to wrong address. Expected 0xabcdef0000000000000000000000000000000001, got none"},
		{"too few confirmations", func(f *fakeExplorer) { f.head = 101 }, nil, "Insufficient confirmations: 1/3. Please wait."},
		{"head behind receipt", func(f *fakeExplorer) { f.head = 99 }, nil, "Insufficient confirmations: -1/3. Please wait."},
		{"head lookup error", func(f *fakeExplorer) { f.headErr = errors.New("timeout") }, nil, "Verification failed"},
		{"underpaid", func(f *fakeExplorer) { f.tx.Value = wei("0.004") }, nil, "Insufficient payment: $8.00 sent, $9 required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := ethExplorer(wei("0.0045"))
			if tt.mutate != nil {
				tt.mutate(exp)
			}
			v := newVerifier(exp)
			if tt.policy != nil {
				v = NewVerifier(exp, *tt.policy, discardLogger)
			}

			result := v.VerifyEth(context.Background(), testTxHash, 9, 2000)
			assert.False(t, result.Valid)
			assert.Equal(t, tt.want, result.Error)
			assert.Nil(t, result.Details)
		})
	}
}

func TestVerifier_VerifyEthWithinTolerance(t *testing.T) {
	// $8.60 is within 5% of $9
	exp := ethExplorer(wei("0.0043"))
	result := newVerifier(exp).VerifyEth(context.Background(), testTxHash, 9, 2000)
	assert.True(t, result.Valid, result.Error)
}

func TestVerifier_VerifyEthOverpaymentWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	exp := ethExplorer(wei("0.01"))
	v := NewVerifier(exp, Policy{TreasuryAddress: testTreasury, MinConfirmations: 3, Tolerance: 0.05}, logger)

	result := v.VerifyEth(context.Background(), testTxHash, 9, 2000)
	assert.True(t, result.Valid)
	assert.Contains(t, buf.String(), "overpayment detected")
	assert.Contains(t, buf.String(), "paidUsd=20.00")
}

func TestVerifier_StopsAtFirstFailure(t *testing.T) {
	exp := ethExplorer(wei("0.0045"))
	exp.receipt.Status = "0x0"
	exp.tx.To = "0x3333333333333333333333333333333333333333"

	result := newVerifier(exp).VerifyEth(context.Background(), testTxHash, 9, 2000)
	assert.Equal(t, "Transaction failed on-chain", result.Error)
	assert.Zero(t, exp.txCalls)
	assert.Zero(t, exp.headCalls)

	exp = ethExplorer(wei("0.0045"))
	exp.tx.To = "0x3333333333333333333333333333333333333333"
	newVerifier(exp).VerifyEth(context.Background(), testTxHash, 9, 2000)
	assert.Equal(t, 1, exp.txCalls)
	assert.Zero(t, exp.headCalls)
}

func TestVerifier_VerifyUsdc(t *testing.T) {
	exp := usdcExplorer(transferInput(testTreasury, 9_000_000))
	result := newVerifier(exp).VerifyUsdc(context.Background(), testTxHash, 9)

	require.True(t, result.Valid, result.Error)
	assert.Equal(t, &Details{
		From:          testPayer,
		To:            strings.ToLower(testTreasury),
		Value:         "9",
		BlockNumber:   100,
		Confirmations: 10,
	}, result.Details)
}

func TestVerifier_VerifyUsdcRejections(t *testing.T) {
	other := "0x3333333333333333333333333333333333333333"
	tests := []struct {
		name   string
		mutate func(f *fakeExplorer)
		want   string
	}{
		{"failed status", func(f *fakeExplorer) { f.receipt.Status = "0x0" }, "Transaction failed on-chain"},
		{"error flag", func(f *fakeExplorer) { f.receipt.IsError = true }, "Transaction contains errors"},
		{"tx missing", func(f *fakeExplorer) { f.txErr = explorer.ErrNotFound }, "Could not fetch transaction details"},
		{"not usdc contract", func(f *fakeExplorer) { f.tx.To = registry.USDTAddress }, "Transaction is not a USDC transfer"},
		{"approve call", func(f *fakeExplorer) {
			f.tx.Input = append(common.FromHex("0x095ea7b3"), f.tx.Input[4:]...)
		}, "Not a USDC transfer transaction"},
		{"truncated call data", func(f *fakeExplorer) { f.tx.Input = f.tx.Input[:40] }, "Not a USDC transfer transaction"},
		{"wrong recipient", func(f *fakeExplorer) { f.tx.Input = transferInput(other, 9_000_000) },
			"USDC sent to wrong address. Expected 0xabcdef0000000000000000000000000000000001, got " + other},
		{"underpaid", func(f *fakeExplorer) { f.tx.Input = transferInput(testTreasury, 8_000_000) },
			"Insufficient payment: $8.00 USDC sent, $9 required"},
		{"confirmations before amount", func(f *fakeExplorer) {
			f.head = 101
			f.tx.Input = transferInput(testTreasury, 1)
		}, "Insufficient confirmations: 1/3. Please wait."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := usdcExplorer(transferInput(testTreasury, 9_000_000))
			tt.mutate(exp)

			result := newVerifier(exp).VerifyUsdc(context.Background(), testTxHash, 9)
			assert.False(t, result.Valid)
			assert.Equal(t, tt.want, result.Error)
		})
	}
}

func TestDecodeTransfer(t *testing.T) {
	to, amount, ok := decodeTransfer(transferInput(testTreasury, 1234))
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(testTreasury), to)
	assert.Equal(t, int64(1234), amount.Int64())

	_, _, ok = decodeTransfer(nil)
	assert.False(t, ok)
}
