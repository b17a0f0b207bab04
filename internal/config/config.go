package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Provider gateway
	ProviderAPIURL   string
	ProviderClientID string
	ProviderSecret   string
	HTTPTimeout      time.Duration

	// Fetch / retry
	PageSize       int
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Sync windows (days)
	DefaultFetchWindowDays int // fetcher default when no start given
	IncrementalWindowDays  int // first incremental sync without checkpoint
	SafetyMarginDays       int // rewind from checkpoint
	FullHistoryDays        int // hard ceiling

	// Matcher tolerances
	MatchAmountTolerance float64
	MatchDateWindow      time.Duration

	// Concurrency
	MaxConcurrentSyncs int

	// Cache
	AccountCacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Auth (token validation only; tokens are issued by the app backend)
	JWTSecret string

	// Dev mode: seed in-memory stores instead of expecting real links
	DevMode bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ProviderAPIURL:   getEnv("PROVIDER_API_URL", "https://sandbox.provider.example.com"),
		ProviderClientID: getEnv("PROVIDER_CLIENT_ID", ""),
		ProviderSecret:   getEnv("PROVIDER_SECRET", ""),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 15*time.Second),

		PageSize:       getEnvInt("FETCH_PAGE_SIZE", 500),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", time.Second),
		MaxBackoff:     getEnvDuration("MAX_BACKOFF", 30*time.Second),

		DefaultFetchWindowDays: getEnvInt("DEFAULT_FETCH_WINDOW_DAYS", 30),
		IncrementalWindowDays:  getEnvInt("INCREMENTAL_WINDOW_DAYS", 90),
		SafetyMarginDays:       getEnvInt("SAFETY_MARGIN_DAYS", 7),
		FullHistoryDays:        getEnvInt("FULL_HISTORY_DAYS", 730),

		MatchAmountTolerance: getEnvFloat("MATCH_AMOUNT_TOLERANCE", 0.01),
		MatchDateWindow:      getEnvDuration("MATCH_DATE_WINDOW", 24*time.Hour),

		MaxConcurrentSyncs: getEnvInt("MAX_CONCURRENT_SYNCS", 4),

		AccountCacheTTL: getEnvDuration("ACCOUNT_CACHE_TTL", 15*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		DevMode: getEnv("DEV_MODE", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
