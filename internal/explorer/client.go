// Package explorer is a client for the Etherscan API: the JSON-RPC proxy
// module used by payment verification and the gas tracker oracle.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/gaslens/gaslens/internal/upstream"
)

const source = "etherscan"

var (
	// ErrNotConfigured is returned when no API key is set
	ErrNotConfigured = errors.New("etherscan API not configured")
	// ErrNotFound is returned when the explorer has no record for a hash
	ErrNotFound = errors.New("not found")
	// ErrUpstream is returned when the explorer answers with an error payload
	ErrUpstream = errors.New("etherscan error")
)

// Receipt is the subset of a transaction receipt used for verification
type Receipt struct {
	Status      string
	IsError     bool
	BlockNumber uint64
}

// Succeeded reports whether the receipt status flag is 0x1
func (r *Receipt) Succeeded() bool {
	return r.Status == "0x1"
}

// Transaction is the subset of a transaction body used for verification
type Transaction struct {
	Hash  string
	From  string
	To    string
	Value *big.Int
	Input []byte
}

// GasOracle holds the gas tracker prices in gwei
type GasOracle struct {
	SafeGasPrice    float64
	ProposeGasPrice float64
	FastGasPrice    float64
	LastBlock       uint64
}

// Client talks to one Etherscan-compatible endpoint
type Client struct {
	apiKey  string
	baseURL string
	fetcher *upstream.Fetcher
}

// NewClient creates an explorer client
func NewClient(apiKey, baseURL string, fetcher *upstream.Fetcher) *Client {
	return &Client{apiKey: apiKey, baseURL: baseURL, fetcher: fetcher}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *envelope) empty() bool {
	return len(e.Result) == 0 || string(e.Result) == "null"
}

func (c *Client) call(ctx context.Context, params url.Values, retry bool) (*envelope, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	params.Set("apikey", c.apiKey)

	var env envelope
	err := c.fetcher.GetJSON(ctx, upstream.Request{
		Source: source,
		URL:    c.baseURL + "?" + params.Encode(),
		Retry:  retry,
	}, &env)
	if err != nil {
		return nil, err
	}
	if env.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, env.Error.Message)
	}
	return &env, nil
}

func proxyParams(action string) url.Values {
	return url.Values{"module": {"proxy"}, "action": {action}}
}

type rpcReceipt struct {
	Status      string `json:"status"`
	IsError     string `json:"isError"`
	BlockNumber string `json:"blockNumber"`
}

// TransactionReceipt fetches the receipt for txHash. Returns ErrNotFound when
// the transaction is unknown or still pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	params := proxyParams("eth_getTransactionReceipt")
	params.Set("txhash", txHash)

	env, err := c.call(ctx, params, false)
	if err != nil {
		return nil, err
	}
	if env.Status == "0" || env.empty() {
		return nil, ErrNotFound
	}

	var raw rpcReceipt
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed receipt: %v", ErrUpstream, err)
	}
	if raw.BlockNumber == "" {
		return nil, ErrNotFound
	}
	block, err := hexutil.DecodeUint64(raw.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed block number: %v", ErrUpstream, err)
	}

	return &Receipt{
		Status:      raw.Status,
		IsError:     raw.IsError == "1",
		BlockNumber: block,
	}, nil
}

type rpcTransaction struct {
	Hash  string        `json:"hash"`
	From  string        `json:"from"`
	To    *string       `json:"to"`
	Value *hexutil.Big  `json:"value"`
	Input hexutil.Bytes `json:"input"`
}

// TransactionByHash fetches the transaction body for txHash
func (c *Client) TransactionByHash(ctx context.Context, txHash string) (*Transaction, error) {
	params := proxyParams("eth_getTransactionByHash")
	params.Set("txhash", txHash)

	env, err := c.call(ctx, params, false)
	if err != nil {
		return nil, err
	}
	if env.empty() {
		return nil, ErrNotFound
	}

	var raw rpcTransaction
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed transaction: %v", ErrUpstream, err)
	}

	tx := &Transaction{
		Hash:  raw.Hash,
		From:  raw.From,
		Value: new(big.Int),
		Input: raw.Input,
	}
	if raw.To != nil {
		tx.To = *raw.To
	}
	if raw.Value != nil {
		tx.Value = raw.Value.ToInt()
	}
	return tx, nil
}

// BlockNumber fetches the current chain head
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	env, err := c.call(ctx, proxyParams("eth_blockNumber"), false)
	if err != nil {
		return 0, err
	}

	var hex string
	if err := json.Unmarshal(env.Result, &hex); err != nil {
		return 0, fmt.Errorf("%w: malformed block number: %v", ErrUpstream, err)
	}
	n, err := hexutil.DecodeUint64(hex)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed block number: %v", ErrUpstream, err)
	}
	return n, nil
}

type rpcGasOracle struct {
	LastBlock       string `json:"LastBlock"`
	SafeGasPrice    string `json:"SafeGasPrice"`
	ProposeGasPrice string `json:"ProposeGasPrice"`
	FastGasPrice    string `json:"FastGasPrice"`
}

// GasOracle fetches the gas tracker prices. Transient failures are retried.
func (c *Client) GasOracle(ctx context.Context) (*GasOracle, error) {
	params := url.Values{"module": {"gastracker"}, "action": {"gasoracle"}}

	env, err := c.call(ctx, params, true)
	if err != nil {
		return nil, err
	}
	if env.Status != "1" {
		msg := env.Message
		if msg == "" {
			msg = "Failed to fetch gas prices"
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}

	var raw rpcGasOracle
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed gas oracle: %v", ErrUpstream, err)
	}

	oracle := &GasOracle{}
	fields := []struct {
		raw string
		dst *float64
	}{
		{raw.SafeGasPrice, &oracle.SafeGasPrice},
		{raw.ProposeGasPrice, &oracle.ProposeGasPrice},
		{raw.FastGasPrice, &oracle.FastGasPrice},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed gas price %q", ErrUpstream, f.raw)
		}
		*f.dst = v
	}
	if raw.LastBlock != "" {
		oracle.LastBlock, _ = strconv.ParseUint(raw.LastBlock, 10, 64)
	}
	return oracle, nil
}
