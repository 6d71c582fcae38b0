package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	// Exchange
	APIKey     string
	APISecret  string
	APIBaseURL string

	// Safety gates. UseTestOrder must be on for any order to leave the
	// process; DryRun additionally keeps /trade from calling out unless
	// the caller forces one execution.
	UseTestOrder bool
	DryRun       bool

	// Strategy / trading defaults
	Symbol       string
	Interval     string
	PollInterval time.Duration
	SpendQuote   float64

	// HTTP
	AppAddr        string
	AdminToken     string
	AllowedOrigins []string
	RequestTimeout time.Duration

	// Telegram notifications (optional)
	TelegramToken  string
	TelegramChatID int64

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	LogLevel string
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		APIKey:     os.Getenv("API_KEY"),
		APISecret:  os.Getenv("API_SECRET"),
		APIBaseURL: getEnvWithDefault("API_BASE_URL", "https://testnet.binance.vision"),

		UseTestOrder: getEnvBoolWithDefault("USE_TEST_ORDER", true),
		DryRun:       getEnvBoolWithDefault("DRY_RUN", true),

		Symbol:       getEnvWithDefault("SYMBOL", "BTCUSDT"),
		Interval:     getEnvWithDefault("INTERVAL", "1m"),
		PollInterval: time.Duration(getEnvIntWithDefault("POLL_INTERVAL", 30)) * time.Second,
		SpendQuote:   getEnvFloatWithDefault("SPEND_QUOTE", 10.0),

		AppAddr:        getEnvWithDefault("APP_ADDR", "127.0.0.1:8000"),
		AdminToken:     getEnvWithDefault("ADMIN_TOKEN", "admin123"),
		RequestTimeout: time.Duration(getEnvIntWithDefault("REQUEST_TIMEOUT", 30)) * time.Second,

		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),

		DBHost:     getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     getEnvWithDefault("DB_PORT", "5432"),
		DBUser:     getEnvWithDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnvWithDefault("DB_NAME", "spotbot"),
		DBSSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
