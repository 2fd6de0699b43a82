// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"snowrail/internal/models"
)

// Config is the full configuration surface of the engine. Every field has
// a working default so a bare process comes up in development mode.
type Config struct {
	Port        string
	Environment string
	RedisURL    string

	// Validation thresholds
	MinTrustScore int
	MaxRisk       models.RiskLevel

	// Cache and admission control
	CacheTTL           time.Duration
	CacheCapacity      int
	RateLimitWindow    time.Duration
	RateLimitThreshold int

	// Check execution
	CheckTimeout      time.Duration
	ValidationTimeout time.Duration
	ParallelChecks    bool
	CheckConcurrency  int
	CheckWeights      map[string]float64

	// Payment intents and settlement
	IntentLifetime   time.Duration
	GasMarginPercent int
	Chain            string
	ChainID          int64
	AssetSymbol      string
	AssetName        string
	AssetVersion     string
	AssetDecimals    int
	AssetAddresses   map[string]string
	LedgerURL        string
	TreasuryAddress  string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		RedisURL:    getEnv("REDIS_URL", ""),

		MinTrustScore: getEnvInt("MIN_TRUST_SCORE", 60),
		MaxRisk:       models.RiskLevel(getEnv("MAX_RISK", string(models.RiskMedium))),

		CacheTTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheCapacity:      getEnvInt("CACHE_CAPACITY", 1000),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitThreshold: getEnvInt("RATE_LIMIT_THRESHOLD", 10),

		CheckTimeout:      getEnvDuration("CHECK_TIMEOUT", 8*time.Second),
		ValidationTimeout: getEnvDuration("VALIDATION_TIMEOUT", 15*time.Second),
		ParallelChecks:    getEnvBool("PARALLEL_CHECKS", true),
		CheckConcurrency:  getEnvInt("CHECK_CONCURRENCY", 4),
		CheckWeights:      getEnvWeights("CHECK_WEIGHTS", defaultWeights()),

		IntentLifetime:   getEnvDuration("INTENT_LIFETIME", 5*time.Minute),
		GasMarginPercent: getEnvInt("GAS_MARGIN_PERCENT", 20),
		Chain:            getEnv("CHAIN", "base"),
		ChainID:          int64(getEnvInt("CHAIN_ID", 8453)),
		AssetSymbol:      getEnv("ASSET_SYMBOL", "USDC"),
		AssetName:        getEnv("ASSET_NAME", "USD Coin"),
		AssetVersion:     getEnv("ASSET_VERSION", "2"),
		AssetDecimals:    getEnvInt("ASSET_DECIMALS", 6),
		AssetAddresses: map[string]string{
			"base":         getEnv("ASSET_ADDRESS_BASE", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
			"base-sepolia": getEnv("ASSET_ADDRESS_BASE_SEPOLIA", "0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
		},
		LedgerURL:       getEnv("LEDGER_URL", "http://localhost:8545"),
		TreasuryAddress: getEnv("TREASURY_ADDRESS", ""),
	}
}

// AssetAddress returns the settlement asset contract for the configured
// chain, or empty if the chain is unknown.
func (c *Config) AssetAddress() string {
	return c.AssetAddresses[c.Chain]
}

func defaultWeights() map[string]float64 {
	return map[string]float64{
		"tls":            0.30,
		"dns":            0.20,
		"infrastructure": 0.25,
		"compliance":     0.25,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvWeights parses "tls=0.3,dns=0.2" style weight tables.
func getEnvWeights(key string, fallback map[string]float64) map[string]float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	weights := make(map[string]float64)
	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if w, err := strconv.ParseFloat(parts[1], 64); err == nil && w > 0 {
			weights[parts[0]] = w
		}
	}
	if len(weights) == 0 {
		return fallback
	}
	return weights
}
