package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Development bool
	APIPort     int

	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis configuration (market price cache)
	RedisAddr     string
	RedisPassword string

	// Auth configuration
	JWTSecret string

	// Market data configuration
	MarketDataURL string

	// Payment processor configuration
	ProcessorBaseURL  string
	ProcessorClientID string
	ProcessorSecret   string

	// Withdrawal fee collection
	FeeCollectionAddress string

	// When true, Send resolves internal recipients and credits their wallet
	// in the same unit of work. Off by default: the platform ledger records
	// sends as one-sided debits with the recipient kept in metadata.
	SendCreditRecipient bool
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:          getEnvAsBool("DEVELOPMENT", false),
		APIPort:              getEnvAsInt("API_PORT", 8080),
		PostgresUser:         getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:     getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresHost:         getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:         getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:           getEnv("POSTGRES_DB", "wallet"),
		PostgresSSLMode:      getEnv("POSTGRES_SSL_MODE", "disable"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		MarketDataURL:        getEnv("MARKET_DATA_URL", "https://api.coingecko.com"),
		ProcessorBaseURL:     getEnv("PROCESSOR_BASE_URL", ""),
		ProcessorClientID:    getEnv("PROCESSOR_CLIENT_ID", ""),
		ProcessorSecret:      getEnv("PROCESSOR_SECRET", ""),
		FeeCollectionAddress: getEnv("FEE_COLLECTION_ADDRESS", ""),
		SendCreditRecipient:  getEnvAsBool("SEND_CREDIT_RECIPIENT", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration fields are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.FeeCollectionAddress == "" {
		return fmt.Errorf("FEE_COLLECTION_ADDRESS is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
