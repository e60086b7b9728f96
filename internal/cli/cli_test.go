package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaslens/gaslens/pkg/client"
)

// resetGlobals clears flag globals and the environment and moves into an
// empty directory so no project config is picked up.
func resetGlobals(t *testing.T) {
	t.Helper()
	origCfg, origServer, origKey := cfgFile, server, adminKey
	t.Cleanup(func() {
		cfgFile, server, adminKey = origCfg, origServer, origKey
	})
	cfgFile, server, adminKey = "", "", ""
	t.Setenv("GASLENS_SERVER", "")
	t.Setenv("GASLENS_ADMIN_KEY", "")
	t.Chdir(t.TempDir())
}

func writeProjectConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile("gaslens.toml", []byte(content), 0644))
}

func TestGetServer(t *testing.T) {
	resetGlobals(t)
	withHome(t)

	assert.Equal(t, defaultServer, getServer())

	writeProjectConfig(t, `server = "http://from-config:8080"`)
	assert.Equal(t, "http://from-config:8080", getServer())

	t.Setenv("GASLENS_SERVER", "http://from-env:8080")
	assert.Equal(t, "http://from-env:8080", getServer())

	server = "http://from-flag:8080"
	assert.Equal(t, "http://from-flag:8080", getServer())
}

func TestGetAdminKey(t *testing.T) {
	resetGlobals(t)
	withHome(t)

	assert.Empty(t, getAdminKey())

	require.NoError(t, saveCredential(defaultServer, "gl_saved_key_value"))
	assert.Equal(t, "gl_saved_key_value", getAdminKey())

	t.Setenv("GASLENS_ADMIN_KEY", "gl_env_key_value")
	assert.Equal(t, "gl_env_key_value", getAdminKey())

	adminKey = "gl_flag_key_value"
	assert.Equal(t, "gl_flag_key_value", getAdminKey())
}

func TestConfigInit(t *testing.T) {
	resetGlobals(t)

	var out strings.Builder
	require.NoError(t, runConfigInit(&out, "https://gaslens.example.com", false))
	assert.Contains(t, out.String(), "Created gaslens.toml")

	config, path, err := loadProjectConfig()
	require.NoError(t, err)
	assert.Equal(t, "gaslens.toml", path)
	assert.Equal(t, "https://gaslens.example.com", config.Server)
	assert.Equal(t, "ETH", config.Defaults.TokenIn)
	assert.Equal(t, "USDC", config.Defaults.TokenOut)
	assert.Equal(t, "1", config.Defaults.Amount)

	err = runConfigInit(io.Discard, defaultServer, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, runConfigInit(io.Discard, defaultServer, true))
	config, _, err = loadProjectConfig()
	require.NoError(t, err)
	assert.Equal(t, defaultServer, config.Server)
}

func TestLoadProjectConfig(t *testing.T) {
	resetGlobals(t)

	_, _, err := loadProjectConfig()
	assert.True(t, os.IsNotExist(err))
	assert.Nil(t, loadProjectConfigSilent())

	require.NoError(t, os.WriteFile(".gaslens.toml", []byte(`
server = "http://hidden:8080"

[defaults]
token_in = "WBTC"
gas_price = 25.5
aggregators = false
`), 0644))

	config, path, err := loadProjectConfig()
	require.NoError(t, err)
	assert.Equal(t, ".gaslens.toml", path)
	assert.Equal(t, "WBTC", config.Defaults.TokenIn)
	assert.InDelta(t, 25.5, config.Defaults.GasPrice, 1e-9)
	require.NotNil(t, config.Defaults.Aggregators)
	assert.False(t, *config.Defaults.Aggregators)

	t.Run("explicit path wins", func(t *testing.T) {
		require.NoError(t, os.WriteFile("other.toml", []byte(`server = "http://other:8080"`), 0644))
		cfgFile = "other.toml"
		defer func() { cfgFile = "" }()

		config, path, err := loadProjectConfig()
		require.NoError(t, err)
		assert.Equal(t, "other.toml", path)
		assert.Equal(t, "http://other:8080", config.Server)
	})

	t.Run("invalid toml", func(t *testing.T) {
		require.NoError(t, os.WriteFile("bad.toml", []byte(`server = `), 0644))
		cfgFile = "bad.toml"
		defer func() { cfgFile = "" }()

		_, _, err := loadProjectConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing TOML")
	})
}

func TestSwapDefaults(t *testing.T) {
	resetGlobals(t)

	d := swapDefaults()
	assert.Equal(t, DefaultsConfig{TokenIn: "ETH", TokenOut: "USDC", Amount: "1"}, d)

	writeProjectConfig(t, `
[defaults]
token_out = "DAI"
amount = "2.5"
`)
	d = swapDefaults()
	assert.Equal(t, "ETH", d.TokenIn)
	assert.Equal(t, "DAI", d.TokenOut)
	assert.Equal(t, "2.5", d.Amount)

	flags := swapFlags{tokenIn: "WBTC", gasPrice: 12}
	q := flags.query()
	assert.Equal(t, client.FeeQuery{TokenIn: "WBTC", TokenOut: "DAI", AmountIn: "2.5", GasPriceGwei: 12}, q)
}

func TestConfigShow(t *testing.T) {
	resetGlobals(t)
	withHome(t)
	writeProjectConfig(t, `server = "http://from-config:8080"`)
	t.Setenv("GASLENS_ADMIN_KEY", "gl_0123456789abcdef")

	var out strings.Builder
	require.NoError(t, runConfigShow(&out))
	s := out.String()
	assert.Contains(t, s, "Loaded from: gaslens.toml")
	assert.Contains(t, s, "Server:    http://from-config:8080")
	assert.Contains(t, s, "Admin key: gl_01234...cdef")
	assert.NotContains(t, s, "gl_0123456789abcdef")
}

// recorder keeps the requests a fake API server received, bodies included
type recorder struct {
	mu   sync.Mutex
	reqs []*http.Request
}

func (r *recorder) add(req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	req.Body = io.NopCloser(bytes.NewReader(body))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
}

func (r *recorder) at(i int) *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[i]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

// newAPIServer serves canned JSON bodies keyed by "METHOD /path". A body
// starting with "!<status> " is sent with that status.
func newAPIServer(t *testing.T, routes map[string]string) (*client.Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"code":"NOT_FOUND","message":"Not found"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		status := http.StatusOK
		if strings.HasPrefix(body, "!") {
			code, rest, _ := strings.Cut(body[1:], " ")
			status, _ = strconv.Atoi(code)
			body = rest
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, "gl_test_admin_key"), rec
}

func TestRunGas(t *testing.T) {
	c, _ := newAPIServer(t, map[string]string{
		"GET /api/gas-price": `{"data":{"slow":10,"standard":15.5,"fast":20,"instant":30},"success":true,"source":"etherscan","level":"low"}`,
	})

	var out strings.Builder
	require.NoError(t, runGas(context.Background(), &out, c, false))
	s := out.String()
	assert.Contains(t, s, "standard  15.50")
	assert.Contains(t, s, "Network: low")
	assert.NotContains(t, s, "Warning")

	out.Reset()
	require.NoError(t, runGas(context.Background(), &out, c, true))
	var decoded client.GasPriceResponse
	require.NoError(t, json.Unmarshal([]byte(out.String()), &decoded))
	assert.Equal(t, 30.0, decoded.Data.Instant)
}

func TestRunGasFallback(t *testing.T) {
	c, _ := newAPIServer(t, map[string]string{
		"GET /api/gas-price": `!500 {"data":{"slow":20,"standard":25,"fast":30,"instant":40},"success":false,"source":"fallback","error":"Failed to fetch gas prices"}`,
	})

	var out strings.Builder
	require.NoError(t, runGas(context.Background(), &out, c, false))
	assert.Contains(t, out.String(), "Warning: gas oracle unavailable")
	assert.Contains(t, out.String(), "instant   40.00")
}

func TestRunFees(t *testing.T) {
	c, seen := newAPIServer(t, map[string]string{
		"GET /api/protocol-fees": `{"data":[{"protocolId":"uniswap-v3","protocolName":"Uniswap V3","baseFeeBps":30,"gasEstimate":150000,"totalFeeUsd":12.34}],"success":true,"ethPriceSource":"fallback","gasPriceGwei":20}`,
	})

	q := client.FeeQuery{TokenIn: "ETH", TokenOut: "USDC", AmountIn: "1", GasPriceGwei: 20}
	var out strings.Builder
	require.NoError(t, runFees(context.Background(), &out, c, q, false))

	s := out.String()
	assert.Contains(t, s, "1 ETH -> USDC at 20.00 gwei")
	assert.Contains(t, s, "Uniswap V3")
	assert.Contains(t, s, "$12.34")
	assert.Contains(t, s, "fallback price")

	require.Equal(t, 1, seen.count())
	query := seen.at(0).URL.Query()
	assert.Equal(t, "ETH", query.Get("tokenIn"))
	assert.Equal(t, "20", query.Get("gasPrice"))
}

func TestRunCompare(t *testing.T) {
	c, seen := newAPIServer(t, map[string]string{
		"GET /api/compare": `{"data":[
			{"id":"1inch","name":"1inch","type":"aggregator","totalCost":{"totalUsd":5.5},"estimatedOutput":3000,"mevRisk":"low","action":{"url":"https://app.1inch.io"},"isBest":true,"savingsLabel":"Best price"},
			{"id":"uniswap-v3","name":"Uniswap V3","type":"dex","totalCost":{"totalUsd":8},"estimatedOutput":2990,"mevRisk":"medium","savingsLabel":"+$2.50"}
		],"success":true,"ethPriceSource":"live","gasPriceGwei":15}`,
	})

	disabled := false
	var out strings.Builder
	q := client.FeeQuery{TokenIn: "ETH", TokenOut: "USDC", AmountIn: "1"}
	require.NoError(t, runCompare(context.Background(), &out, c, q, &disabled, false))

	s := out.String()
	assert.Contains(t, s, "1inch *")
	assert.Contains(t, s, "Best: 1inch (https://app.1inch.io)")
	assert.Contains(t, s, "+$2.50")
	assert.NotContains(t, s, "Warning")
	assert.Equal(t, "false", seen.at(0).URL.Query().Get("aggregators"))
}

func TestRunQuote(t *testing.T) {
	c, _ := newAPIServer(t, map[string]string{
		"GET /api/swap-quote": `{"data":{"quotes":[{"protocol":"1inch","toAmount":"3000.5","estimatedGas":180000,"priceImpact":0.1}],"bestQuote":null},"success":true,"source":"mock"}`,
	})

	var out strings.Builder
	q := client.FeeQuery{TokenIn: "ETH", TokenOut: "USDC", AmountIn: "1"}
	require.NoError(t, runQuote(context.Background(), &out, c, q, false))
	assert.Contains(t, out.String(), "estimated quotes")
	assert.Contains(t, out.String(), "3000.5")
}

func TestRunPrices(t *testing.T) {
	c, seen := newAPIServer(t, map[string]string{
		"GET /api/token-prices": `{"data":{"usd-coin":{"usd":1,"usd_24h_change":0.01},"ethereum":{"usd":3000,"usd_24h_change":-2.5}},"success":true,"source":"coingecko"}`,
	})

	var out strings.Builder
	require.NoError(t, runPrices(context.Background(), &out, c, []string{"ethereum", "usd-coin"}, false))
	s := out.String()
	assert.Less(t, strings.Index(s, "ethereum"), strings.Index(s, "usd-coin"))
	assert.Contains(t, s, "$3000.00")
	assert.Contains(t, s, "-2.50%")
	assert.Equal(t, "ethereum,usd-coin", seen.at(0).URL.Query().Get("ids"))
}

func TestRunStatus(t *testing.T) {
	c, _ := newAPIServer(t, map[string]string{
		"GET /api/subscription/status": `{"hasPro":true,"tier":"Pro","since":"2024-01-01T00:00:00Z","accessType":"lifetime"}`,
	})

	var out strings.Builder
	require.NoError(t, runStatus(context.Background(), &out, c, "0xabc", false))
	assert.Equal(t, "0xabc: Pro (lifetime access since 2024-01-01T00:00:00Z)\n", out.String())
}

func TestRunVerify(t *testing.T) {
	t.Run("verified", func(t *testing.T) {
		c, seen := newAPIServer(t, map[string]string{
			"POST /api/crypto/verify-payment": `{"success":true,"subscription":{"walletAddress":"0xabc","txHash":"0xdef","tier":"Pro","amountUsd":29,"currency":"USDC","blockNumber":100}}`,
		})

		var out strings.Builder
		req := client.VerifyPaymentRequest{TxHash: "0xdef", WalletAddress: "0xabc", PlanName: "Pro", Amount: 29, Currency: "usdc"}
		require.NoError(t, runVerify(context.Background(), &out, c, req))
		assert.Contains(t, out.String(), "Payment verified: 0xabc is now on Pro")
		assert.Contains(t, out.String(), "block 100")

		var sent client.VerifyPaymentRequest
		require.NoError(t, json.NewDecoder(seen.at(0).Body).Decode(&sent))
		assert.Equal(t, "USDC", sent.Currency)
	})

	t.Run("rejected", func(t *testing.T) {
		c, _ := newAPIServer(t, map[string]string{
			"POST /api/crypto/verify-payment": `!400 {"error":{"code":"VERIFICATION_FAILED","message":"Insufficient confirmations: 3/12. Please wait."}}`,
		})

		err := runVerify(context.Background(), io.Discard, c, client.VerifyPaymentRequest{Currency: "ETH"})
		require.Error(t, err)
		assert.Equal(t, "payment rejected: Insufficient confirmations: 3/12. Please wait.", err.Error())
	})
}

func TestRunAdmin(t *testing.T) {
	c, seen := newAPIServer(t, map[string]string{
		"GET /api/admin/subscriptions":   `{"subscriptions":[{"wallet_address":"0xabc","tier":"Pro","amount_usd":29,"currency":"USDC","is_active":true,"created_at":"2024-01-01"}],"stats":{"total_subscriptions":3,"active_subscriptions":2},"pagination":{"limit":10,"offset":0,"count":1}}`,
		"PATCH /api/admin/subscriptions": `{"success":true,"subscription":{"wallet_address":"0xabc","is_active":false}}`,
	})

	var out strings.Builder
	require.NoError(t, runAdminList(context.Background(), &out, c, 10, 0, false))
	assert.Contains(t, out.String(), "0xabc")
	assert.Contains(t, out.String(), "1 shown, 2 active of 3 total")
	assert.Equal(t, "Bearer gl_test_admin_key", seen.at(0).Header.Get("Authorization"))
	assert.Equal(t, "10", seen.at(0).URL.Query().Get("limit"))

	out.Reset()
	require.NoError(t, runAdminSet(context.Background(), &out, c, "0xabc", false))
	assert.Equal(t, "Subscription for 0xabc deactivated\n", out.String())
}

func TestRunAdminUnauthorized(t *testing.T) {
	c, _ := newAPIServer(t, map[string]string{
		"GET /api/admin/subscriptions": `!401 {"error":{"code":"UNAUTHORIZED","message":"Unauthorized"}}`,
	})

	err := runAdminList(context.Background(), io.Discard, c, 0, 0, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gaslens auth login")
}

func TestRunVersionCheck(t *testing.T) {
	c, _ := newAPIServer(t, map[string]string{
		"GET /api/version": `{"version":"v1.2.0"}`,
	})

	tests := []struct {
		local string
		want  string
	}{
		{"v1.1.0", "older than the server"},
		{"v1.3.0", "server is older"},
		{"v1.2.0", ""},
		{"dev", ""},
	}

	for _, tt := range tests {
		t.Run(tt.local, func(t *testing.T) {
			var out strings.Builder
			require.NoError(t, runVersionCheck(context.Background(), &out, c, tt.local))
			assert.Contains(t, out.String(), "server  v1.2.0")
			if tt.want != "" {
				assert.Contains(t, out.String(), tt.want)
			} else {
				assert.Equal(t, "server  v1.2.0\n", out.String())
			}
		})
	}
}
