package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	VisitDailyLimit int
	VisitWindow     time.Duration
	VisitCountTTL   time.Duration
	VisitBurstRPS   float64
	VisitBurst      int

	ContentDir     string
	DefaultLocale  string
	AdminJWTSecret string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Environment:    getEnv("ENVIRONMENT", "production"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "portfolio.db"),
		RedisURL:    getEnv("REDIS_URL", ""),

		VisitDailyLimit: getIntEnv("VISIT_DAILY_LIMIT", 10),
		VisitWindow:     getDurationEnv("VISIT_WINDOW", 24*time.Hour),
		VisitCountTTL:   getDurationEnv("VISIT_COUNT_TTL", 30*time.Second),
		VisitBurstRPS:   getFloatEnv("VISIT_BURST_RPS", 0),

		ContentDir:     getEnv("CONTENT_DIR", "content"),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "en"),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
	// one connection IP may carry a full day's quota in a single burst
	cfg.VisitBurst = getIntEnv("VISIT_BURST", 2*cfg.VisitDailyLimit)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=%s", DriverSQLite)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", c.StoreDriver, DriverPostgres, DriverSQLite)
	}

	if c.VisitDailyLimit < 1 {
		return fmt.Errorf("VISIT_DAILY_LIMIT must be positive, got %d", c.VisitDailyLimit)
	}
	if c.VisitWindow <= 0 {
		return fmt.Errorf("VISIT_WINDOW must be positive, got %s", c.VisitWindow)
	}
	if c.VisitCountTTL < time.Second {
		return fmt.Errorf("VISIT_COUNT_TTL must be at least 1s, got %s", c.VisitCountTTL)
	}
	if c.VisitBurstRPS < 0 || c.VisitBurst < 0 {
		return fmt.Errorf("VISIT_BURST_RPS and VISIT_BURST must not be negative")
	}
	if c.VisitBurstRPS > 0 && c.VisitBurst < c.VisitDailyLimit {
		return fmt.Errorf("VISIT_BURST must be at least VISIT_DAILY_LIMIT (%d) when throttling is enabled, got %d", c.VisitDailyLimit, c.VisitBurst)
	}
	if c.ContentDir == "" {
		return fmt.Errorf("CONTENT_DIR is required")
	}
	return nil
}

// IsDevelopment reports whether the server runs outside production
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == "local"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv gets a duration such as "30s" or "24h" with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
