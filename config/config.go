package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"polytrader/internal/adapters/logger" // Import the logger package for LogLevel
	"polytrader/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Market data
	GammaBaseURL   string        // Polymarket gamma API base URL
	HTTPTimeout    time.Duration // Per-request timeout for market data calls
	RetryAttempts  int           // Bounded retry cap for market data fetches
	RetryBaseDelay time.Duration // Initial backoff delay, doubled per attempt

	// Candle feed (indicator strategies)
	BinanceAPIKey    string
	BinanceSecretKey string
	UseTestnet       bool
	CandleInterval   string // e.g. "6h"
	CandleLimit      int

	// Risk parameters
	FeeRate         float64 // Taker-fee approximation deducted on close
	MinPosition     float64
	MaxPosition     float64
	ScaleUpFactor   float64
	ScaleDownFactor float64

	// Circuit breaker
	BreakerLossThreshold int
	BreakerLockout       time.Duration

	// Market filtering / history
	TargetTimeframe domain.Timeframe // Only markets on this horizon are traded
	HistoryCap      int              // Price points retained per market

	// Strategy definitions (fixed set, capital/risk tunable via env)
	Strategies []domain.StrategyConfig

	// Database
	DBPath string

	// Notifications (optional, no-op when token empty)
	TelegramToken  string
	TelegramChatID int64

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Market data
	cfg.GammaBaseURL = getEnv("GAMMA_BASE_URL", "https://gamma-api.polymarket.com")
	if cfg.GammaBaseURL == "" {
		errs = append(errs, "GAMMA_BASE_URL must be set")
	}

	httpTimeoutSeconds := getEnvAsInt("HTTP_TIMEOUT_SECONDS", 10)
	if httpTimeoutSeconds <= 0 {
		errs = append(errs, "HTTP_TIMEOUT_SECONDS must be positive")
	}
	cfg.HTTPTimeout = time.Duration(httpTimeoutSeconds) * time.Second

	cfg.RetryAttempts = getEnvAsInt("RETRY_ATTEMPTS", 3)
	if cfg.RetryAttempts <= 0 {
		errs = append(errs, "RETRY_ATTEMPTS must be positive")
	}

	retryBaseMillis := getEnvAsInt("RETRY_BASE_DELAY_MS", 1000)
	if retryBaseMillis <= 0 {
		errs = append(errs, "RETRY_BASE_DELAY_MS must be positive")
	}
	cfg.RetryBaseDelay = time.Duration(retryBaseMillis) * time.Millisecond

	// Candle feed. Keys may stay empty: klines are a public endpoint.
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.UseTestnet = getEnvAsBool("IS_TESTNET", false)
	cfg.CandleInterval = getEnv("CANDLE_INTERVAL", "6h")
	cfg.CandleLimit = getEnvAsInt("CANDLE_LIMIT", 50)
	if cfg.CandleLimit <= 0 {
		errs = append(errs, "CANDLE_LIMIT must be positive")
	}

	// Risk parameters
	cfg.FeeRate, err = getEnvAsFloatRequired("FEE_RATE", 0.02)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FEE_RATE: %v", err))
	} else if cfg.FeeRate < 0 || cfg.FeeRate >= 1.0 {
		errs = append(errs, "FEE_RATE must be in [0.0, 1.0)")
	}

	cfg.MinPosition, err = getEnvAsFloatRequired("MIN_POSITION", 5.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_POSITION: %v", err))
	} else if cfg.MinPosition <= 0 {
		errs = append(errs, "MIN_POSITION must be positive")
	}

	cfg.MaxPosition, err = getEnvAsFloatRequired("MAX_POSITION", 100.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_POSITION: %v", err))
	} else if cfg.MaxPosition < cfg.MinPosition {
		errs = append(errs, "MAX_POSITION must be >= MIN_POSITION")
	}

	cfg.ScaleUpFactor = getEnvAsFloat("SCALE_UP_FACTOR", 1.5)
	cfg.ScaleDownFactor = getEnvAsFloat("SCALE_DOWN_FACTOR", 0.5)
	if cfg.ScaleUpFactor <= 1.0 {
		errs = append(errs, "SCALE_UP_FACTOR must be greater than 1.0")
	}
	if cfg.ScaleDownFactor <= 0 || cfg.ScaleDownFactor >= 1.0 {
		errs = append(errs, "SCALE_DOWN_FACTOR must be between 0.0 and 1.0 (exclusive)")
	}

	// Circuit breaker
	cfg.BreakerLossThreshold = getEnvAsInt("BREAKER_LOSS_THRESHOLD", 3)
	if cfg.BreakerLossThreshold <= 0 {
		errs = append(errs, "BREAKER_LOSS_THRESHOLD must be positive")
	}
	lockoutHours := getEnvAsInt("BREAKER_LOCKOUT_HOURS", 24)
	if lockoutHours <= 0 {
		errs = append(errs, "BREAKER_LOCKOUT_HOURS must be positive")
	}
	cfg.BreakerLockout = time.Duration(lockoutHours) * time.Hour

	// Market filtering / history
	cfg.TargetTimeframe = domain.Timeframe(getEnv("TARGET_TIMEFRAME", string(domain.Timeframe4h)))
	cfg.HistoryCap = getEnvAsInt("HISTORY_CAP", 10)
	if cfg.HistoryCap <= 0 {
		errs = append(errs, "HISTORY_CAP must be positive")
	}

	// Strategies: the fixed set, capital and risk tunable via env.
	initialCapital, err := getEnvAsFloatRequired("STRATEGY_INITIAL_CAPITAL", 100.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STRATEGY_INITIAL_CAPITAL: %v", err))
	} else if initialCapital <= 0 {
		errs = append(errs, "STRATEGY_INITIAL_CAPITAL must be positive")
	}
	riskPerTrade, err := getEnvAsFloatRequired("STRATEGY_RISK_PER_TRADE", 0.05)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STRATEGY_RISK_PER_TRADE: %v", err))
	} else if riskPerTrade <= 0 || riskPerTrade >= 1.0 {
		errs = append(errs, "STRATEGY_RISK_PER_TRADE must be between 0.0 and 1.0 (exclusive)")
	}
	scaleUpAfter := getEnvAsInt("STRATEGY_SCALE_UP_AFTER", 10)
	scaleDownAfter := getEnvAsInt("STRATEGY_SCALE_DOWN_AFTER", 3)
	if scaleUpAfter <= 0 || scaleDownAfter <= 0 {
		errs = append(errs, "streak thresholds (STRATEGY_SCALE_UP_AFTER, STRATEGY_SCALE_DOWN_AFTER) must be positive")
	}

	cfg.Strategies = defaultStrategies(initialCapital, riskPerTrade, scaleUpAfter, scaleDownAfter)

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/polytrader.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Notifications
	cfg.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	chatIDStr := getEnv("TELEGRAM_CHAT_ID", "")
	if chatIDStr != "" {
		cfg.TelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid TELEGRAM_CHAT_ID: %v", err))
		}
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		errs = append(errs, "TELEGRAM_CHAT_ID must be set when TELEGRAM_TOKEN is set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// defaultStrategies returns the engine's strategy set. Names double as keys
// into the capital and breaker stores, so renaming one orphans its state.
func defaultStrategies(capital, risk float64, scaleUpAfter, scaleDownAfter int) []domain.StrategyConfig {
	base := domain.StrategyConfig{
		InitialCapital: capital,
		RiskPerTrade:   risk,
		ScaleUpAfter:   scaleUpAfter,
		ScaleDownAfter: scaleDownAfter,
	}

	contrarian := base
	contrarian.Name = "AI Contrarian"
	contrarian.MaxPositions = 1
	contrarian.ExitThreshold = 0.70
	contrarian.Ordering = domain.OrderByConfidence

	lateEntry := base
	lateEntry.Name = "Late Entry"
	lateEntry.MaxPositions = 2
	lateEntry.ExitThreshold = 0.65
	lateEntry.Ordering = domain.OrderByPrice

	trend := base
	trend.Name = "TBO Trend"
	trend.MaxPositions = 1
	trend.ExitThreshold = 0.70
	trend.Ordering = domain.OrderByConfidence

	divergence := base
	divergence.Name = "TBT Divergence"
	divergence.MaxPositions = 1
	divergence.ExitThreshold = 0.70
	divergence.Ordering = domain.OrderByConfidence

	return []domain.StrategyConfig{contrarian, lateEntry, trend, divergence}
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
