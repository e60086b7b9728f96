//go:build e2e

package e2e

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/gaslens/gaslens/internal/config"
	"github.com/gaslens/gaslens/internal/registry"
	"github.com/gaslens/gaslens/internal/server"
	"github.com/gaslens/gaslens/internal/storage"
	"github.com/gaslens/gaslens/pkg/client"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	treasuryAddress = "0x9999999999999999999999999999999999999999"
	adminSecret     = "gl_e2e_admin_secret"
	chainHead       = 1000
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	RedisContainer    *tcredis.RedisContainer
	ConnString        string
	RedisAddr         string
	Etherscan         *fakeEtherscan
	TestServer        *httptest.Server
	Server            *server.Server
	Store             storage.Store
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("gaslens"),
		postgres.WithUsername("gaslens"),
		postgres.WithPassword("gaslens"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return container, connString, nil
}

// setupRedisE starts a Redis container and returns its host:port
func setupRedisE(ctx context.Context) (*tcredis.RedisContainer, string, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, "", fmt.Errorf("failed to start redis container: %w", err)
	}

	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get redis endpoint: %w", err)
	}

	return container, addr, nil
}

// fakeTx is a mined transaction served by fakeEtherscan
type fakeTx struct {
	From    string
	To      string
	Value   *big.Int
	Input   []byte
	Block   uint64
	Success bool
}

// fakeEtherscan answers the proxy and gastracker calls the server makes
type fakeEtherscan struct {
	*httptest.Server

	mu  sync.Mutex
	txs map[string]fakeTx
}

func newFakeEtherscan() *fakeEtherscan {
	f := &fakeEtherscan{txs: make(map[string]fakeTx)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *fakeEtherscan) add(hash string, tx fakeTx) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[strings.ToLower(hash)] = tx
}

func (f *fakeEtherscan) lookup(hash string) (fakeTx, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[strings.ToLower(hash)]
	return tx, ok
}

func (f *fakeEtherscan) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "" {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")

	switch q.Get("action") {
	case "gasoracle":
		writeEnvelope(w, "1", map[string]string{
			"LastBlock":       "1000",
			"SafeGasPrice":    "10",
			"ProposeGasPrice": "12",
			"FastGasPrice":    "15",
		})
	case "eth_blockNumber":
		writeRPC(w, hexutil.EncodeUint64(chainHead))
	case "eth_getTransactionReceipt":
		tx, ok := f.lookup(q.Get("txhash"))
		if !ok {
			writeRPC(w, nil)
			return
		}
		status := "0x0"
		if tx.Success {
			status = "0x1"
		}
		writeRPC(w, map[string]string{"status": status, "blockNumber": hexutil.EncodeUint64(tx.Block)})
	case "eth_getTransactionByHash":
		tx, ok := f.lookup(q.Get("txhash"))
		if !ok {
			writeRPC(w, nil)
			return
		}
		value := tx.Value
		if value == nil {
			value = new(big.Int)
		}
		writeRPC(w, map[string]string{
			"hash":  q.Get("txhash"),
			"from":  tx.From,
			"to":    tx.To,
			"value": hexutil.EncodeBig(value),
			"input": hexutil.Encode(tx.Input),
		})
	default:
		writeEnvelope(w, "0", "unknown action")
	}
}

func writeEnvelope(w http.ResponseWriter, status string, result any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "message": "OK", "result": result})
}

func writeRPC(w http.ResponseWriter, result any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result})
}

// usdcTransfer builds transfer(address,uint256) call data
func usdcTransfer(to string, amount int64) []byte {
	input := hexutil.MustDecode("0xa9059cbb")
	input = append(input, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	input = append(input, common.LeftPadBytes(big.NewInt(amount).Bytes(), 32)...)
	return input
}

// usdcPayment registers a confirmed USDC payment of dollars to the treasury
func usdcPayment(from string, dollars int64) fakeTx {
	return fakeTx{
		From:    from,
		To:      registry.USDCAddress,
		Input:   usdcTransfer(treasuryAddress, dollars*1_000_000),
		Block:   chainHead - 20,
		Success: true,
	}
}

func testConfig(connString, redisAddr, etherscanURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, Host: "0.0.0.0"},
		Storage: config.StorageConfig{
			Type:     "postgres",
			Postgres: config.PostgresConfig{URL: connString},
		},
		Logging: config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit: config.RateLimitConfig{
			Enabled:        false,
			RequestsPerMin: 6000,
			BurstSize:      1000,
			Store:          "redis",
		},
		Redis:    config.RedisConfig{Addr: redisAddr},
		Security: config.SecurityConfig{FilterEnabled: true, MaxBodySizeMB: 1},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"*"}},
		Upstream: config.UpstreamConfig{Timeout: 5 * time.Second},
		Explorer: config.ExplorerConfig{APIKey: "e2e", BaseURL: etherscanURL},
		Prices:   config.PricesConfig{BaseURL: etherscanURL, FallbackEthPrice: 2000},
		Quotes:   config.QuotesConfig{OneInchBaseURL: etherscanURL, ZeroXBaseURL: etherscanURL},
		Payments: config.PaymentsConfig{
			TreasuryAddress:  treasuryAddress,
			MinConfirmations: 12,
			PriceTolerance:   0.05,
			PlanPrices:       map[string]float64{"Pro": 29, "Enterprise": 99},
			WalletLimit:      5,
			IPLimit:          50,
			AttemptWindow:    5 * time.Minute,
		},
		Admin:   config.AdminConfig{SecretKey: adminSecret},
		GasFeed: config.GasFeedConfig{Interval: time.Hour},
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// startServerE starts the server in-process against the shared containers
func startServerE(cfg *config.Config) (*httptest.Server, *server.Server, storage.Store, error) {
	logger := newLogger()

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	srv := server.New(cfg, store, logger)
	return httptest.NewServer(srv.Handler()), srv, store, nil
}

// startServer starts an extra server sharing the test store, closed with the test
func startServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	srv := server.New(cfg, testCtx.Store, newLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts
}

func feeQuery() client.FeeQuery {
	return client.FeeQuery{TokenIn: "ETH", TokenOut: "USDC", AmountIn: "1"}
}

// newClient creates an API client for the shared test server
func newClient(adminKey string) *client.Client {
	return client.New(testCtx.TestServer.URL, adminKey)
}

// randomAddress returns a fresh wallet address for test isolation
func randomAddress(t *testing.T) string {
	t.Helper()
	return common.BytesToAddress(randomBytes(t, 20)).Hex()
}

// randomTxHash returns a fresh transaction hash for test isolation
func randomTxHash(t *testing.T) string {
	t.Helper()
	return hexutil.Encode(randomBytes(t, 32))
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// assertAPIError asserts that an error is an APIError with the expected status and code
func assertAPIError(t *testing.T, err error, status int, code string) *client.APIError {
	t.Helper()
	require.Error(t, err, "Expected an error")
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok, "Error should be an APIError, got %T: %v", err, err)
	require.Equal(t, status, apiErr.StatusCode, "Status mismatch: %s", apiErr.Message)
	require.Equal(t, code, apiErr.Code, "Error code mismatch")
	return apiErr
}
