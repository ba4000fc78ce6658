package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	SQLitePath  string // used when DatabaseURL is empty
	RedisURL    string

	// NLP service
	NLPURL     string
	NLPTimeout time.Duration

	// Aggregation
	RepositoryTimeout   time.Duration
	CacheTTL            time.Duration
	CacheTimeout        time.Duration
	MemoryCacheSize     int
	ContextDefaultLimit int

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SQLitePath:          getEnv("SQLITE_PATH", "contextstack.db"),
		RedisURL:            os.Getenv("REDIS_URL"),
		NLPURL:              getEnv("NLP_URL", "http://localhost:8000"),
		NLPTimeout:          getDuration("NLP_TIMEOUT", 5*time.Second),
		RepositoryTimeout:   getDuration("REPOSITORY_TIMEOUT", 5*time.Second),
		CacheTTL:            getDuration("CACHE_TTL", 300*time.Second),
		CacheTimeout:        getDuration("CACHE_TIMEOUT", 500*time.Millisecond),
		MemoryCacheSize:     getInt("MEMORY_CACHE_SIZE", 10000),
		ContextDefaultLimit: getInt("CONTEXT_DEFAULT_LIMIT", 8),
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	// In production, require database and redis URLs
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("750ms") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}
