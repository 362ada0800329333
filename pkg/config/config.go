package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openglide/skysearch/pkg/observability"
	"github.com/openglide/skysearch/pkg/search"
	"github.com/openglide/skysearch/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Store configuration
	Store StoreConfig

	// Cache configuration
	Cache CacheConfig

	// Search configuration
	Search SearchConfig

	// Rate limit configuration
	RateLimit RateLimitConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StoreConfig holds entity store connection settings
type StoreConfig struct {
	Driver      string // postgres or sqlite3
	URL         string
	ReplicaURLs []string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// ConnectionConfig converts the store settings for storage.NewConnectionManager.
func (s StoreConfig) ConnectionConfig() storage.ConnectionConfig {
	return storage.ConnectionConfig{
		Driver:      s.Driver,
		PrimaryURL:  s.URL,
		ReplicaURLs: s.ReplicaURLs,
		MaxConns:    s.MaxConns,
		MinConns:    s.MinConns,
		Timeout:     s.Timeout,
		MaxLifetime: s.MaxLifetime,
		MaxIdleTime: s.MaxIdleTime,
	}
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	Enabled       bool
	L1Size        int
	TTL           time.Duration
	RedisURL      string // empty disables the shared tier
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
}

// RedisConfig converts the Redis settings for storage.NewRedisClient.
func (c CacheConfig) RedisConfig() storage.RedisConfig {
	return storage.RedisConfig{
		URL:      c.RedisURL,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		PoolSize: c.RedisPoolSize,
	}
}

// SearchConfig holds search behaviour settings
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
	KindsFile    string // empty uses the built-in kinds

	// How often entity-count gauges are refreshed (cron expression)
	CountSchedule string
}

// RateLimitConfig holds per-client request limits for the search API
type RateLimitConfig struct {
	Enabled  bool
	Requests int // sustained requests per window
	Window   time.Duration
	Burst    int

	// Key clients by X-Forwarded-For / X-Real-IP (only behind a trusted proxy)
	TrustProxyHeaders bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Store:         loadStoreConfig(),
		Cache:         loadCacheConfig(),
		Search:        loadSearchConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SKYSEARCH_HOST", "0.0.0.0"),
		Port:            getEnv("SKYSEARCH_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SKYSEARCH_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SKYSEARCH_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SKYSEARCH_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SKYSEARCH_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SKYSEARCH_HEALTH_PORT", "9090"),
	}
}

// loadStoreConfig loads store configuration from environment
func loadStoreConfig() StoreConfig {
	return StoreConfig{
		Driver:      strings.ToLower(getEnv("SKYSEARCH_STORE_DRIVER", "postgres")),
		URL:         getEnv("SKYSEARCH_STORE_URL", ""),
		ReplicaURLs: storage.ParseReplicaURLs(getEnv("SKYSEARCH_STORE_REPLICA_URLS", "")),
		MaxConns:    getEnvInt("SKYSEARCH_STORE_MAX_CONNS", 20),
		MinConns:    getEnvInt("SKYSEARCH_STORE_MIN_CONNS", 2),
		Timeout:     getEnvDuration("SKYSEARCH_STORE_TIMEOUT", 5*time.Second),
		MaxLifetime: getEnvDuration("SKYSEARCH_STORE_MAX_LIFETIME", time.Hour),
		MaxIdleTime: getEnvDuration("SKYSEARCH_STORE_MAX_IDLE_TIME", 10*time.Minute),
	}
}

// loadCacheConfig loads result cache configuration from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:       getEnvBool("SKYSEARCH_CACHE_ENABLED", true),
		L1Size:        getEnvInt("SKYSEARCH_L1_CACHE_SIZE", 1024),
		TTL:           getEnvDuration("SKYSEARCH_CACHE_TTL", 30*time.Second),
		RedisURL:      getEnv("SKYSEARCH_REDIS_URL", ""),
		RedisPassword: getEnv("SKYSEARCH_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SKYSEARCH_REDIS_DB", 0),
		RedisPoolSize: getEnvInt("SKYSEARCH_REDIS_POOL_SIZE", 0),
	}
}

// loadSearchConfig loads search configuration from environment
func loadSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultLimit:  getEnvInt("SKYSEARCH_DEFAULT_LIMIT", search.DefaultLimit),
		MaxLimit:      getEnvInt("SKYSEARCH_MAX_LIMIT", search.MaxLimit),
		KindsFile:     getEnv("SKYSEARCH_KINDS_FILE", ""),
		CountSchedule: getEnv("SKYSEARCH_COUNT_SCHEDULE", "@every 5m"),
	}
}

// loadRateLimitConfig loads rate limit configuration from environment
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           getEnvBool("SKYSEARCH_RATE_LIMIT_ENABLED", false),
		Requests:          getEnvInt("SKYSEARCH_RATE_LIMIT_REQUESTS", 60),
		Window:            getEnvDuration("SKYSEARCH_RATE_LIMIT_WINDOW", time.Minute),
		Burst:             getEnvInt("SKYSEARCH_RATE_LIMIT_BURST", 10),
		TrustProxyHeaders: getEnvBool("SKYSEARCH_TRUST_PROXY_HEADERS", false),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("SKYSEARCH_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SKYSEARCH_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SKYSEARCH_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SKYSEARCH_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SKYSEARCH_OTEL_SERVICE_NAME", "skysearch"),
		OTelServiceVersion: getEnv("SKYSEARCH_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SKYSEARCH_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("SKYSEARCH_OTEL_SAMPLE_RATIO", 1.0),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate store config
	if _, err := search.DialectFor(c.Store.Driver); err != nil {
		return fmt.Errorf("invalid store driver: %s (must be postgres or sqlite3)", c.Store.Driver)
	}
	if c.Store.URL == "" {
		return fmt.Errorf("store URL is required")
	}
	if c.Store.MaxConns <= 0 {
		return fmt.Errorf("store max connections must be positive")
	}
	if c.Store.MinConns < 0 || c.Store.MinConns > c.Store.MaxConns {
		return fmt.Errorf("store min connections must be between 0 and %d", c.Store.MaxConns)
	}

	// Validate cache config
	if c.Cache.Enabled {
		if c.Cache.L1Size <= 0 {
			return fmt.Errorf("L1 cache size must be positive when the cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache TTL must be positive when the cache is enabled")
		}
	}

	// Validate search config
	if c.Search.MaxLimit <= 0 {
		return fmt.Errorf("max limit must be positive")
	}
	if c.Search.DefaultLimit <= 0 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("default limit must be between 1 and max limit (%d)", c.Search.MaxLimit)
	}

	// Validate rate limit config
	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			return fmt.Errorf("rate limit requests must be positive when rate limiting is enabled")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive when rate limiting is enabled")
		}
		if c.RateLimit.Burst < 0 {
			return fmt.Errorf("rate limit burst must not be negative")
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
