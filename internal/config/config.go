package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Profile store backends selectable via PROFILE_STORE
const (
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string

	// Identity provider (GoTrue-compatible admin API). When ProviderURL is
	// empty the in-memory provider is used instead.
	ProviderURL        string
	ProviderServiceKey string
	ProviderJWTSecret  string

	// Profile store
	ProfileStore string
	RedisURL     string
	DatabaseURL  string

	// Bootstrap administrator
	AdminEmail    string
	AdminPassword string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Environment:    getEnv("ENVIRONMENT", "production"),

		ProviderURL:        getEnv("PROVIDER_URL", ""),
		ProviderServiceKey: getEnv("PROVIDER_SERVICE_KEY", ""),
		ProviderJWTSecret:  getEnv("PROVIDER_JWT_SECRET", ""),

		ProfileStore: getEnv("PROFILE_STORE", StoreBackendMemory),
		RedisURL:     getEnv("REDIS_URL", ""),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@company.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "Admin123!"),
	}, nil
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
