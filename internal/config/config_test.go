package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/product-catalog/internal/domain"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.HTTPPort)
	assert.Equal(t, 2, cfg.ProductListPageSize)
	assert.Equal(t, domain.PolicyPerTag, cfg.PriceRowPolicyValue())
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, DriverMemory, cfg.CacheDriver)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.SlowQueryThreshold())
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoad_FromEnv(t *testing.T) {
	setEnvs(t, map[string]string{
		"CATALOG_HTTP_PORT":      "9100",
		"PRODUCT_LIST_PAGE_SIZE": "25",
		"PRICE_ROW_POLICY":       "per_group",
		"STORE_DRIVER":           "memory",
		"STORAGE_DRIVER":         "minio",
		"MINIO_BUCKET":           "catalog",
		"CACHE_DRIVER":           "redis",
		"CACHE_TTL_SECONDS":      "30",
		"KAFKA_ENABLED":          "true",
		"KAFKA_BROKERS":          "k1:9092,k2:9092",
		"AUTH_JWT_SECRET":        "s3cret",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, 25, cfg.ProductListPageSize)
	assert.Equal(t, domain.PolicyPerGroup, cfg.PriceRowPolicyValue())
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, DriverMinIO, cfg.StorageDriver)
	assert.Equal(t, "catalog", cfg.MinIOBucket)
	assert.Equal(t, DriverRedis, cfg.CacheDriver)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
		want string
	}{
		{"port", map[string]string{"CATALOG_HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"page size", map[string]string{"PRODUCT_LIST_PAGE_SIZE": "0"}, "PRODUCT_LIST_PAGE_SIZE"},
		{"policy", map[string]string{"PRICE_ROW_POLICY": "cartesian"}, "PRICE_ROW_POLICY"},
		{"store driver", map[string]string{"STORE_DRIVER": "sqlite"}, "STORE_DRIVER"},
		{"storage driver", map[string]string{"STORAGE_DRIVER": "s3"}, "STORAGE_DRIVER"},
		{"cache driver", map[string]string{"CACHE_DRIVER": "memcached"}, "CACHE_DRIVER"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTEL_SAMPLE_RATE"},
		{"upload limit", map[string]string{"MAX_UPLOAD_BYTES": "-1"}, "MAX_UPLOAD_BYTES"},
		{"not a number", map[string]string{"CATALOG_HTTP_PORT": "http"}, "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, tt.envs)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_KafkaEnabledNeedsBrokers(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.KafkaEnabled = true
	cfg.KafkaBrokers = nil

	assert.ErrorContains(t, cfg.Validate(), "KAFKA_BROKERS")
}
