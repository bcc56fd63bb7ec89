package config

import (
	"fmt"
	"time"

	"github.com/utafrali/product-catalog/internal/domain"
	pkgconfig "github.com/utafrali/product-catalog/pkg/config"
)

// Backend drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverMinIO    = "minio"
	DriverRedis    = "redis"
	DriverNone     = "none"
)

// Config holds all configuration for the product catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int   `env:"CATALOG_HTTP_PORT" envDefault:"8001"`
	MaxUploadBytes  int64 `env:"MAX_UPLOAD_BYTES" envDefault:"33554432"`
	ShutdownTimeout int   `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"15"`

	// Catalog behaviour
	ProductListPageSize int    `env:"PRODUCT_LIST_PAGE_SIZE" envDefault:"2"`
	PriceRowPolicy      string `env:"PRICE_ROW_POLICY" envDefault:"per_tag"`

	// Persistence: postgres or memory
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"catalog_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Image storage: memory or minio
	StorageDriver      string `env:"STORAGE_DRIVER" envDefault:"memory"`
	StoragePublicURL   string `env:"STORAGE_PUBLIC_URL" envDefault:"http://localhost:8001/media"`
	MinIOEndpoint      string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinIOAccessKey     string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey     string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL        bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	MinIORegion        string `env:"MINIO_REGION" envDefault:"us-east-1"`
	MinIOBucket        string `env:"MINIO_BUCKET" envDefault:"product-images"`
	MinIOPublicURL     string `env:"MINIO_PUBLIC_URL" envDefault:""`
	MinIOPresignExpiry int    `env:"MINIO_PRESIGN_EXPIRY_MINUTES" envDefault:"15"`

	// Cache: memory, redis or none
	CacheDriver     string `env:"CACHE_DRIVER" envDefault:"memory"`
	CacheTTLSeconds int    `env:"CACHE_TTL_SECONDS" envDefault:"300"`
	RedisHost       string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Auth. An empty secret leaves the write endpoints open.
	JWTSecret string `env:"AUTH_JWT_SECRET" envDefault:""`
	JWTIssuer string `env:"AUTH_JWT_ISSUER" envDefault:""`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and driver names.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.ProductListPageSize < 1 {
		return fmt.Errorf("PRODUCT_LIST_PAGE_SIZE must be at least 1, got %d", c.ProductListPageSize)
	}
	if _, err := domain.ParsePriceRowPolicy(c.PriceRowPolicy); err != nil {
		return fmt.Errorf("PRICE_ROW_POLICY: %w", err)
	}

	switch c.StoreDriver {
	case DriverPostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StoreDriver)
	}

	switch c.StorageDriver {
	case DriverMemory:
	case DriverMinIO:
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio storage driver")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverMemory, DriverMinIO, c.StorageDriver)
	}

	switch c.CacheDriver {
	case DriverMemory, DriverRedis, DriverNone:
	default:
		return fmt.Errorf("CACHE_DRIVER must be %q, %q or %q, got %q", DriverMemory, DriverRedis, DriverNone, c.CacheDriver)
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must not be negative, got %d", c.CacheTTLSeconds)
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// PriceRowPolicyValue returns the parsed price-row policy.
func (c *Config) PriceRowPolicyValue() domain.PriceRowPolicy {
	p, _ := domain.ParsePriceRowPolicy(c.PriceRowPolicy)
	return p
}

// CacheTTL returns the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// SlowQueryThreshold returns the duration above which queries are logged.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}

// ShutdownGrace returns how long in-flight requests get on shutdown.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}
