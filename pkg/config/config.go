// Package config loads pipeline configuration from environment variables and
// YAML tables (category rules, account mapping, training samples).
package config

import (
	"os"
	"strconv"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"

	"github.com/Mortuwu/Accounts-easing/pkg/money"
)

// Config holds all pipeline configuration.
type Config struct {
	Currency string
	OCR      OCRConfig
	Parser   ParserConfig
	Classify ClassifyConfig
	Accounts AccountsConfig
}

type OCRConfig struct {
	// MinTextChars is the minimum usable text-layer length before a page
	// falls back to OCR.
	MinTextChars int
	DPI          int
	Timeout      time.Duration
	Workers      int
	Language     string
}

type ParserConfig struct {
	// BalanceTolerance is the maximum gap, in major units, accepted when
	// reconciling consecutive running balances.
	BalanceTolerance float64
}

type ClassifyConfig struct {
	// MinConfidence is the floor below which learned-model predictions are
	// downgraded to Uncategorized.
	MinConfidence float64
}

type AccountsConfig struct {
	Bank     string
	Suspense string
}

// Load reads configuration from environment variables with compiled-in
// defaults, so the library works with no environment at all.
func Load() *Config {
	return &Config{
		Currency: getEnv("CURRENCY", money.DefaultCurrency),
		OCR: OCRConfig{
			MinTextChars: getEnvAsInt("OCR_MIN_TEXT_CHARS", 100),
			DPI:          getEnvAsInt("OCR_DPI", 300),
			Timeout:      getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
			Workers:      getEnvAsInt("OCR_WORKERS", 2),
			Language:     getEnv("OCR_LANGUAGE", "eng"),
		},
		Parser: ParserConfig{
			BalanceTolerance: getEnvAsFloat("PARSER_BALANCE_TOLERANCE", 0.015),
		},
		Classify: ClassifyConfig{
			MinConfidence: getEnvAsFloat("CLASSIFY_MIN_CONFIDENCE", 0.5),
		},
		Accounts: AccountsConfig{
			Bank:     getEnv("ACCOUNT_BANK", "Bank Account"),
			Suspense: getEnv("ACCOUNT_SUSPENSE", "Suspense Account"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
