// Package client provides a Go client for the GasLens API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a GasLens API client
type Client struct {
	baseURL    string
	adminKey   string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new GasLens client. adminKey is only sent to admin routes.
func New(baseURL, adminKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		adminKey: adminKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error response
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// GasPrice gets current gas prices. The server answers 500 with fallback
// prices when its oracle is down; that response is returned, not an error.
func (c *Client) GasPrice(ctx context.Context) (*GasPriceResponse, error) {
	var resp GasPriceResponse
	status, err := c.send(ctx, http.MethodGet, "/api/gas-price", nil, false, &resp, http.StatusInternalServerError)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && resp.Source == "" {
		return nil, fmt.Errorf("HTTP %d: %s", status, resp.Error)
	}
	return &resp, nil
}

// ProtocolFees prices a swap on every protocol in the fee table
func (c *Client) ProtocolFees(ctx context.Context, q FeeQuery) (*ProtocolFeesResponse, error) {
	var resp ProtocolFeesResponse
	if err := c.get(ctx, "/api/protocol-fees?"+q.values().Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Compare ranks swap routes for a query. When aggregators is nil the
// server default applies.
func (c *Client) Compare(ctx context.Context, q FeeQuery, aggregators *bool) (*CompareResponse, error) {
	v := q.values()
	if aggregators != nil {
		v.Set("aggregators", strconv.FormatBool(*aggregators))
	}

	var resp CompareResponse
	if err := c.get(ctx, "/api/compare?"+v.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SwapQuote fetches ranked swap quotes
func (c *Client) SwapQuote(ctx context.Context, tokenIn, tokenOut, amount string) (*SwapQuoteResponse, error) {
	v := url.Values{"tokenIn": {tokenIn}, "tokenOut": {tokenOut}, "amount": {amount}}

	var resp SwapQuoteResponse
	if err := c.get(ctx, "/api/swap-quote?"+v.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TokenPrices gets USD prices for price feed ids such as "ethereum"
func (c *Client) TokenPrices(ctx context.Context, ids []string) (*TokenPricesResponse, error) {
	v := url.Values{"ids": {strings.Join(ids, ",")}}

	var resp TokenPricesResponse
	if err := c.get(ctx, "/api/token-prices?"+v.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubscriptionStatus gets a wallet's subscription status
func (c *Client) SubscriptionStatus(ctx context.Context, wallet string) (*SubscriptionStatus, error) {
	var resp SubscriptionStatus
	if err := c.get(ctx, "/api/subscription/status?wallet="+url.QueryEscape(wallet), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyPayment submits a payment for on-chain verification
func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*Subscription, error) {
	var resp struct {
		Success      bool         `json:"success"`
		Subscription Subscription `json:"subscription"`
	}
	if _, err := c.send(ctx, http.MethodPost, "/api/crypto/verify-payment", req, false, &resp); err != nil {
		return nil, err
	}
	return &resp.Subscription, nil
}

// ListSubscriptions lists subscriptions, newest first. Requires the admin key.
func (c *Client) ListSubscriptions(ctx context.Context, limit, offset int) (*ListSubscriptionsResponse, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/admin/subscriptions"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var resp ListSubscriptionsResponse
	if _, err := c.send(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetSubscriptionActive activates or deactivates a wallet's subscription.
// Requires the admin key.
func (c *Client) SetSubscriptionActive(ctx context.Context, wallet string, active bool) (*AdminSubscription, error) {
	body := map[string]any{"walletAddress": wallet, "isActive": active}

	var resp struct {
		Success      bool              `json:"success"`
		Subscription AdminSubscription `json:"subscription"`
	}
	if _, err := c.send(ctx, http.MethodPatch, "/api/admin/subscriptions", body, true, &resp); err != nil {
		return nil, err
	}
	return &resp.Subscription, nil
}

// Protocols lists the protocol directory
func (c *Client) Protocols(ctx context.Context) ([]Protocol, error) {
	var resp struct {
		Data []Protocol `json:"data"`
	}
	if err := c.get(ctx, "/api/protocols", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Tokens lists registered tokens, optionally filtered by category
func (c *Client) Tokens(ctx context.Context, category string) ([]Token, error) {
	path := "/api/tokens"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}

	var resp struct {
		Data []Token `json:"data"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// PairSupport lists the protocols that can trade a pair
func (c *Client) PairSupport(ctx context.Context, tokenIn, tokenOut string) (*PairSupport, error) {
	v := url.Values{"tokenIn": {tokenIn}, "tokenOut": {tokenOut}}

	var resp struct {
		Data PairSupport `json:"data"`
	}
	if err := c.get(ctx, "/api/protocols/support?"+v.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Version gets the server version
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, "/api/version", &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

func (q FeeQuery) values() url.Values {
	v := url.Values{
		"tokenIn":  {q.TokenIn},
		"tokenOut": {q.TokenOut},
		"amountIn": {q.AmountIn},
	}
	if q.GasPriceGwei > 0 {
		v.Set("gasPrice", strconv.FormatFloat(q.GasPriceGwei, 'f', -1, 64))
	}
	return v
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	_, err := c.send(ctx, http.MethodGet, path, nil, false, result)
	return err
}

// send issues a request and decodes the body into result. Statuses listed in
// accept are decoded like successes; the status code is returned either way.
func (c *Client) send(ctx context.Context, method, path string, body any, admin bool, result any, accept ...int) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && !accepted(resp.StatusCode, accept) {
		return resp.StatusCode, parseError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func accepted(status int, accept []int) bool {
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}

func parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Code == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: resp.Status}
	}
	errResp.Error.StatusCode = resp.StatusCode
	return &errResp.Error
}
