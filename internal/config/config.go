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
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string

	// Poll storage. DATABASE_URL selects the Postgres store, REDIS_URL the
	// Redis store; with neither set polls live in process memory only.
	DatabaseURL string
	RedisURL    string

	// Shared secret the chat gateway uses to sign participant tokens
	GatewayJWTSecret string

	// Google Calendar collaborator
	GoogleClientID     string
	GoogleClientSecret string

	// Candidate generation defaults, overridable per request
	DefaultGranularity   time.Duration
	DefaultMaxCandidates int
	DefaultPollLifetime  time.Duration

	// Fan-out bounds for calendar calls
	FreeBusyConcurrency int
	RegisterConcurrency int
	CalendarCallTimeout time.Duration

	// Cron schedule for the poll expiry sweep, empty disables the sweeper
	ExpirySweepSchedule string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigins:       parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Environment:          getEnv("ENVIRONMENT", "production"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		GatewayJWTSecret:     getEnv("GATEWAY_JWT_SECRET", ""),
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		DefaultGranularity:   getDurationEnv("DEFAULT_GRANULARITY", 30*time.Minute),
		DefaultMaxCandidates: getIntEnv("DEFAULT_MAX_CANDIDATES", 3),
		DefaultPollLifetime:  getDurationEnv("DEFAULT_POLL_LIFETIME", 24*time.Hour),
		FreeBusyConcurrency:  getIntEnv("FREEBUSY_CONCURRENCY", 5),
		RegisterConcurrency:  getIntEnv("REGISTER_CONCURRENCY", 5),
		CalendarCallTimeout:  getDurationEnv("CALENDAR_CALL_TIMEOUT", 10*time.Second),
		ExpirySweepSchedule:  getEnv("EXPIRY_SWEEP_SCHEDULE", "@every 1m"),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
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

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
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
