package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string
	RedisURL   string

	// APIBaseURL is the EduQuest REST backend (attempts, users, claims).
	APIBaseURL string
	APITimeout time.Duration

	// GeneratorBaseURL is the bonus-game generation microservice. It is a
	// separate network target with its own failure domain, so it gets its
	// own base URL and a longer timeout (generation can take seconds).
	GeneratorBaseURL string
	GeneratorTimeout time.Duration

	// SessionTTL is how long an attempt session may sit idle before the
	// reaper evicts it. The process-side analog of a closed browser tab.
	SessionTTL time.Duration

	// UserCacheTTL caps how long an upstream user lookup is cached in Redis.
	// The token's own expiry still wins when it is shorter.
	UserCacheTTL time.Duration

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "pretty"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		APIBaseURL:       getEnv("API_BASE_URL", "http://localhost:8000"),
		APITimeout:       time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 10)) * time.Second,
		GeneratorBaseURL: getEnv("GENERATOR_BASE_URL", "http://localhost:8001"),
		GeneratorTimeout: time.Duration(getEnvInt("GENERATOR_TIMEOUT_SECONDS", 60)) * time.Second,
		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		UserCacheTTL:     time.Duration(getEnvInt("USER_CACHE_TTL_MINUTES", 5)) * time.Minute,
		AllowedOrigins:   parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
