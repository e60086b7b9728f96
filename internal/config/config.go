package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Security  SecurityConfig
	Proxy     ProxyConfig
	CORS      CORSConfig
	Upstream  UpstreamConfig
	Explorer  ExplorerConfig
	Prices    PricesConfig
	Quotes    QuotesConfig
	Payments  PaymentsConfig
	Admin     AdminConfig
	GasFeed   GasFeedConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type     string // "sqlite" or "postgres"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
}

// RateLimitConfig holds rate limiting settings.
// RequestsPerMin and BurstSize drive the global per-IP throttle; Store selects
// the backend for the per-route fixed-window policies.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerMin int
	BurstSize      int
	Store          string // "memory" or "redis"
}

// RedisConfig holds the shared counter store connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SecurityConfig holds security filter settings
type SecurityConfig struct {
	FilterEnabled bool
	MaxBodySizeMB int
}

// ProxyConfig holds trusted proxy settings for X-Forwarded-For handling
type ProxyConfig struct {
	TrustProxy     bool
	TrustedProxies []string // CIDR notation
}

// CORSConfig lists the browser origins allowed to call the API and open the
// gas feed. "*" allows any origin.
type CORSConfig struct {
	AllowedOrigins []string
}

// UpstreamConfig bounds every outbound call to a third-party API
type UpstreamConfig struct {
	Timeout    time.Duration
	MaxRetries int
}

// ExplorerConfig holds block explorer settings
type ExplorerConfig struct {
	APIKey  string
	BaseURL string
}

// PricesConfig holds price feed settings
type PricesConfig struct {
	APIKey           string
	BaseURL          string
	FallbackEthPrice float64
	CacheTTL         time.Duration
}

// QuotesConfig holds live swap quote sources
type QuotesConfig struct {
	OneInchAPIKey  string
	OneInchBaseURL string
	ZeroXAPIKey    string
	ZeroXBaseURL   string
}

// PaymentsConfig holds the payment acceptance policy
type PaymentsConfig struct {
	TreasuryAddress  string
	MinConfirmations int
	PriceTolerance   float64
	RequireLivePrice bool
	PlanPrices       map[string]float64
	WalletLimit      int
	IPLimit          int
	AttemptWindow    time.Duration
}

// AdminConfig holds admin API settings
type AdminConfig struct {
	SecretKey string
}

// GasFeedConfig holds the websocket gas feed settings
type GasFeedConfig struct {
	Interval time.Duration
}

// Load loads configuration from environment variables, reading an optional
// .env file first. Variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 8080),
			Host:         getEnv("HOST", "0.0.0.0"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 60),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 120),
		},
		Storage: StorageConfig{
			Type: getEnv("STORAGE_TYPE", "sqlite"),
			Postgres: PostgresConfig{
				URL: getEnv("DATABASE_URL", ""),
			},
			SQLite: SQLiteConfig{
				Path: getEnv("SQLITE_PATH", "./data/gaslens.db"),
			},
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin: getEnvInt("RATE_LIMIT_RPM", 300),
			BurstSize:      getEnvInt("RATE_LIMIT_BURST", 50),
			Store:          getEnv("RATE_LIMIT_STORE", "memory"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Security: SecurityConfig{
			FilterEnabled: getEnvBool("SECURITY_FILTER_ENABLED", true),
			MaxBodySizeMB: getEnvInt("SECURITY_MAX_BODY_SIZE_MB", 1),
		},
		Proxy: ProxyConfig{
			TrustProxy:     getEnvBool("TRUST_PROXY", false),
			TrustedProxies: getEnvStringSlice("TRUSTED_PROXIES", []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Upstream: UpstreamConfig{
			Timeout:    time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 10)) * time.Second,
			MaxRetries: getEnvInt("UPSTREAM_MAX_RETRIES", 2),
		},
		Explorer: ExplorerConfig{
			APIKey:  getEnv("ETHERSCAN_API_KEY", ""),
			BaseURL: getEnv("ETHERSCAN_BASE_URL", "https://api.etherscan.io/api"),
		},
		Prices: PricesConfig{
			APIKey:           getEnv("COINGECKO_API_KEY", ""),
			BaseURL:          getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			FallbackEthPrice: getEnvFloat("FALLBACK_ETH_PRICE_USD", 2000),
			CacheTTL:         time.Duration(getEnvInt("PRICE_CACHE_SECONDS", 60)) * time.Second,
		},
		Quotes: QuotesConfig{
			OneInchAPIKey:  getEnv("ONEINCH_API_KEY", ""),
			OneInchBaseURL: getEnv("ONEINCH_BASE_URL", "https://api.1inch.dev/swap/v6.0/1"),
			ZeroXAPIKey:    getEnv("ZEROX_API_KEY", ""),
			ZeroXBaseURL:   getEnv("ZEROX_BASE_URL", "https://api.0x.org/swap/v1"),
		},
		Payments: PaymentsConfig{
			TreasuryAddress:  getEnv("TREASURY_WALLET_ADDRESS", ""),
			MinConfirmations: getEnvInt("PAYMENT_MIN_CONFIRMATIONS", 3),
			PriceTolerance:   getEnvFloat("PAYMENT_PRICE_TOLERANCE", 0.05),
			RequireLivePrice: getEnvBool("PAYMENT_REQUIRE_LIVE_PRICE", false),
			PlanPrices: map[string]float64{
				"Pro":        getEnvFloat("PLAN_PRICE_PRO_USD", 9),
				"Enterprise": getEnvFloat("PLAN_PRICE_ENTERPRISE_USD", 49),
			},
			WalletLimit:   getEnvInt("PAYMENT_WALLET_LIMIT", 5),
			IPLimit:       getEnvInt("PAYMENT_IP_LIMIT", 10),
			AttemptWindow: time.Duration(getEnvInt("PAYMENT_WINDOW_MINUTES", 5)) * time.Minute,
		},
		Admin: AdminConfig{
			SecretKey: getEnv("ADMIN_SECRET_KEY", ""),
		},
		GasFeed: GasFeedConfig{
			Interval: time.Duration(getEnvInt("GAS_FEED_INTERVAL_SECONDS", 12)) * time.Second,
		},
	}

	// If DATABASE_URL is set, default to postgres
	if cfg.Storage.Postgres.URL != "" && cfg.Storage.Type == "sqlite" {
		cfg.Storage.Type = "postgres"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
