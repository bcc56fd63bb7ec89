package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPostgresConfig returns sensible defaults for the catalog database pool.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "catalog",
		Password:        "catalog_secret",
		DBName:          "catalog",
		SSLMode:         "disable",
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

const (
	defaultRetryAttempts = 3
	defaultRetryBaseWait = 1 * time.Second
	retryJitterFraction  = 0.25
)

// retryBackoff returns the backoff duration for the given attempt (0-indexed)
// with ±25% jitter. Base delays: 1s, 2s, 4s.
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := defaultRetryBaseWait << attempt
	jitter := time.Duration(float64(base) * retryJitterFraction * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter
	return base + jitter
}

// withRetry calls op up to defaultRetryAttempts times. retryable decides
// whether a failure is worth another attempt; a nil retryable retries
// everything. Waits honour ctx.
func withRetry(ctx context.Context, what string, logger *slog.Logger, retryable func(error) bool, op func() error) error {
	var err error
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == defaultRetryAttempts-1 {
			break
		}
		wait := retryBackoff(attempt)
		if logger != nil {
			logger.Warn(what+" failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", defaultRetryAttempts),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: context canceled during retry: %w", what, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", what, defaultRetryAttempts, err)
}

// NewPostgresPool creates a new connection pool for PostgreSQL with startup
// retry logic (3 attempts, 1s/2s/4s exponential backoff with ±25% jitter).
func NewPostgresPool(ctx context.Context, cfg *PostgresConfig) (*pgxpool.Pool, error) {
	return NewPostgresPoolWithLogger(ctx, cfg, nil)
}

// NewPostgresPoolWithLogger is like NewPostgresPool but logs retries.
func NewPostgresPoolWithLogger(ctx context.Context, cfg *PostgresConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	var pool *pgxpool.Pool
	err = withRetry(ctx, "connect to postgres", logger, nil, func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
