package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fernet/fernet-go"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Market   MarketConfig
	Ledger   LedgerConfig
	APIKey   string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// MarketConfig holds valuation-related settings: the base currency, the single
// supported foreign currency, the FX symbol queried from the market data
// provider, the fallback rate used when no FX observation is available, and
// the benchmark instrument for the parallel TWR series.
type MarketConfig struct {
	BaseCurrency    string
	ForeignCurrency string
	FXSymbol        string
	DefaultFXRate   float64
	BenchmarkSymbol string
}

// LedgerConfig holds the remote ledger (sheet service) endpoint and its access
// token. The token is stored Fernet-encrypted in the environment and decrypted
// at load time with LEDGER_TOKEN_KEY; a plaintext LEDGER_TOKEN is accepted when
// no key is configured (local development).
type LedgerConfig struct {
	URL   string
	Token string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/trading_journal.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Market: MarketConfig{
			BaseCurrency:    getEnv("BASE_CURRENCY", "TWD"),
			ForeignCurrency: getEnv("FOREIGN_CURRENCY", "USD"),
			FXSymbol:        getEnv("FX_SYMBOL", "TWD=X"),
			DefaultFXRate:   getEnvFloat("DEFAULT_FX_RATE", 31.5),
			BenchmarkSymbol: getEnv("BENCHMARK_SYMBOL", "0050.TW"),
		},
		Ledger: LedgerConfig{
			URL: getEnv("LEDGER_URL", ""),
		},
		APIKey: getEnv("API_KEY", ""),
	}

	token, err := loadLedgerToken()
	if err != nil {
		return nil, err
	}
	config.Ledger.Token = token

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// loadLedgerToken resolves the ledger service access token. When
// LEDGER_TOKEN_KEY is set, LEDGER_TOKEN must hold a Fernet token encrypted
// with that key; otherwise LEDGER_TOKEN is used as-is.
func loadLedgerToken() (string, error) {
	raw := os.Getenv("LEDGER_TOKEN")
	keyStr := os.Getenv("LEDGER_TOKEN_KEY")
	if keyStr == "" || raw == "" {
		return raw, nil
	}

	key, err := fernet.DecodeKey(keyStr)
	if err != nil {
		return "", fmt.Errorf("invalid LEDGER_TOKEN_KEY: %w", err)
	}

	plaintext := fernet.VerifyAndDecrypt([]byte(raw), 0, []*fernet.Key{key})
	if plaintext == nil {
		return "", fmt.Errorf("failed to decrypt LEDGER_TOKEN")
	}

	return strings.TrimSpace(string(plaintext)), nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvFloat gets a float environment variable or returns a default value.
// A malformed value falls back to the default rather than aborting startup.
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var parsed float64
	if _, err := fmt.Sscanf(value, "%g", &parsed); err != nil {
		return defaultValue
	}
	return parsed
}
