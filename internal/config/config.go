package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	pkgconfig "github.com/Aimecol/hforher/pkg/config"
)

// Catalog sources.
const (
	CatalogSourceEmbedded = "embedded"
	CatalogSourceHTTP     = "http"
)

// Config holds all configuration for the storefront server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"APP_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofCIDRs      []string      `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// Session storage. Without Redis carts and wishlists live in memory.
	RedisEnabled bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisAddr    string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass    string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB      int           `env:"REDIS_DB" envDefault:"0"`
	StoreTTL     time.Duration `env:"STORE_TTL" envDefault:"0s"`

	// Sessions
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Catalog
	CatalogSource          string        `env:"CATALOG_SOURCE" envDefault:"embedded"`
	CatalogURL             string        `env:"CATALOG_URL"`
	CatalogRefreshInterval time.Duration `env:"CATALOG_REFRESH_INTERVAL" envDefault:"5m"`
	CatalogCacheTTL        time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"60s"`
	SearchMinScore         float64       `env:"SEARCH_MIN_SCORE" envDefault:"0.02"`

	// Order placement rate limit, per client IP. Forwarding headers are
	// only read from peers inside TRUSTED_PROXY_CIDRS.
	OrderRateLimit    float64  `env:"ORDER_RATE_LIMIT_RPS" envDefault:"1"`
	OrderBurst        int      `env:"ORDER_RATE_LIMIT_BURST" envDefault:"5"`
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	if c.StoreTTL < 0 {
		return fmt.Errorf("STORE_TTL must not be negative")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.SearchMinScore < 0 || c.SearchMinScore > 1 {
		return fmt.Errorf("SEARCH_MIN_SCORE must be between 0.0 and 1.0, got %v", c.SearchMinScore)
	}
	if c.OrderRateLimit <= 0 || c.OrderBurst < 1 {
		return fmt.Errorf("order rate limit needs a positive rate and burst")
	}

	c.CatalogSource = strings.ToLower(strings.TrimSpace(c.CatalogSource))
	switch c.CatalogSource {
	case CatalogSourceEmbedded:
	case CatalogSourceHTTP:
		if c.CatalogURL == "" {
			return fmt.Errorf("CATALOG_URL is required when CATALOG_SOURCE=http")
		}
		if c.CatalogRefreshInterval <= 0 {
			return fmt.Errorf("CATALOG_REFRESH_INTERVAL must be positive")
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.CatalogSource)
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if err := validateCIDRs("PPROF_ALLOWED_CIDRS", c.PprofCIDRs); err != nil {
		return err
	}
	return validateCIDRs("TRUSTED_PROXY_CIDRS", c.TrustedProxyCIDRs)
}

func validateCIDRs(name string, cidrs []string) error {
	for _, cidr := range cidrs {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			return fmt.Errorf("invalid %s entry %q: %w", name, cidr, err)
		}
	}
	return nil
}

// ServerAddr is the listen address for the HTTP server.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
