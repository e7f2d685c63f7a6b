package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Ledger connection retry policy
	DBConnectAttempts int
	DBConnectBackoff  time.Duration

	// Blockchain node
	NodeURL      string
	NodeToken    string
	ConfirmPoll  time.Duration
	DepositWait  time.Duration
	RecoveryWait time.Duration

	// Price cache
	PriceTTL     time.Duration
	PriceRefresh time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "algoswarm"),
		DBPassword: getEnv("DB_PASSWORD", "algoswarm"),
		DBName:     getEnv("DB_NAME", "algoswarm"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		DBConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		DBConnectBackoff:  getEnvDuration("DB_CONNECT_BACKOFF", 2*time.Second),

		// Blockchain node
		NodeURL:      getEnv("ALGOD_URL", "http://localhost:4001"),
		NodeToken:    getEnv("ALGOD_TOKEN", ""),
		ConfirmPoll:  getEnvDuration("CONFIRM_POLL_INTERVAL", 2*time.Second),
		DepositWait:  getEnvDuration("DEPOSIT_CONFIRM_TIMEOUT", 60*time.Second),
		RecoveryWait: getEnvDuration("RECOVERY_CONFIRM_TIMEOUT", 120*time.Second),

		// Price cache
		PriceTTL:     getEnvDuration("PRICE_CACHE_TTL", 30*time.Second),
		PriceRefresh: getEnvDuration("PRICE_REFRESH_INTERVAL", 60*time.Second),
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvDuration retrieves a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return value
}
