package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"star-core/internal/runtime"
)

// Config holds environment-driven settings for the Star service.
type Config struct {
	Port string

	// Database
	DBPath string

	// Localization
	Language string // "en" or "zh"

	// Runtime defaults
	OpLimit        int
	CommissionRate float64
	SeriesLength   int
	SeriesBase     float64
	SeriesStep     float64

	// Named runtime profiles (yaml); empty disables profiles.
	ProfilesPath string

	// Program cache
	CacheTTL        time.Duration
	CacheMaxEntries int

	// HTTP
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "./data/star.db"),
		Language:        getEnv("LANGUAGE", "en"),
		OpLimit:         getEnvInt("OP_LIMIT", runtime.DefaultOpLimit),
		CommissionRate:  getEnvFloat("COMMISSION_RATE", 0),
		SeriesLength:    getEnvInt("SERIES_LENGTH", 200),
		SeriesBase:      getEnvFloat("SERIES_BASE", 100),
		SeriesStep:      getEnvFloat("SERIES_STEP", 0.5),
		ProfilesPath:    getEnv("PROFILES_PATH", ""),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 4096),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 50),
		RequestTimeout:  time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
	}, nil
}

// RuntimeConfig returns the interpreter settings carried by the environment.
func (c *Config) RuntimeConfig() runtime.Config {
	return runtime.Config{
		OpLimit:        c.OpLimit,
		CommissionRate: c.CommissionRate,
		SeriesLength:   c.SeriesLength,
		SeriesBase:     c.SeriesBase,
		SeriesStep:     c.SeriesStep,
	}.WithDefaults()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
