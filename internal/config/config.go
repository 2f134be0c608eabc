package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port              string
	AllowedOrigins    []string
	LogLevel          string
	DatabaseURL       string // Empty runs the in-memory store (demo mode)
	RedisURL          string // Empty disables caching and publishing
	SupabaseJWTSecret string
	Environment       string

	EnforceElectionWindow bool
	ResultsCacheTTL       time.Duration
	EnableChangeListener  bool
	BallotRateLimit       int // Ballots per client IP per window; 0 disables
	BallotRateWindow      time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigins:    parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		Environment:       getEnv("ENVIRONMENT", "production"),

		EnforceElectionWindow: getBoolEnv("ENFORCE_ELECTION_WINDOW", true),
		ResultsCacheTTL:       getDurationEnv("RESULTS_CACHE_TTL", 5*time.Second),
		EnableChangeListener:  getBoolEnv("ENABLE_CHANGE_LISTENER", true),
		BallotRateLimit:       getIntEnv("BALLOT_RATE_LIMIT", 0),
		BallotRateWindow:      getDurationEnv("BALLOT_RATE_WINDOW", time.Minute),
	}, nil
}

// DemoMode reports whether the service runs without a database
func (c *Config) DemoMode() bool {
	return c.DatabaseURL == ""
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
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv accepts Go durations ("5s") or plain seconds ("5")
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
