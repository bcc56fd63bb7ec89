// Package cache holds read-through caching for catalog reference data: the
// distinct variant tag set and the active variant catalog.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Keys of cached catalog data. Every committed product or variant write
// deletes all of them.
const (
	KeyVariantTags    = "catalog:variant_tags"
	KeyActiveVariants = "catalog:variants:active"
)

// CatalogKeys lists the keys invalidated after a catalog write.
var CatalogKeys = []string{KeyVariantTags, KeyActiveVariants}

// KeyGeneration counts catalog invalidations. A loader only stores its result
// when the generation did not move while it was reading the database.
const KeyGeneration = "catalog:generation"

// Cache stores JSON-serializable values under string keys.
type Cache interface {
	// Get decodes the value stored under key into dst and reports whether it
	// was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores v under key. A zero ttl keeps the value until deleted.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Incr atomically adds one to the integer under key, starting from 0,
	// and returns the new value. The key never expires.
	Incr(ctx context.Context, key string) (int64, error)
}

var (
	lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Cache lookups by key and result (hit, miss, error, stale)",
		},
		[]string{"key", "result"},
	)
)

// GetOrLoad returns the cached value for key or calls load and caches its
// result for ttl. Cache failures are logged and never fail the call.
//
// The result is not cached when an Invalidate ran during load, so a reader
// racing a write cannot put back the data the write replaced. A write landing
// between the generation check and the Set can still leave a stale entry,
// which lives at most ttl.
func GetOrLoad[T any](ctx context.Context, c Cache, key string, ttl time.Duration, logger *slog.Logger, load func(context.Context) (T, error)) (T, error) {
	var cached T
	hit, err := c.Get(ctx, key, &cached)
	switch {
	case err != nil:
		lookups.WithLabelValues(key, "error").Inc()
		logger.WarnContext(ctx, "cache get failed", slog.String("key", key), slog.String("error", err.Error()))
	case hit:
		lookups.WithLabelValues(key, "hit").Inc()
		return cached, nil
	default:
		lookups.WithLabelValues(key, "miss").Inc()
	}
	cacheable := err == nil

	before, err := generation(ctx, c)
	if err != nil {
		cacheable = false
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if !cacheable {
		return v, nil
	}

	after, err := generation(ctx, c)
	if err != nil || after != before {
		lookups.WithLabelValues(key, "stale").Inc()
		logger.DebugContext(ctx, "catalog changed during load, not caching", slog.String("key", key))
		return v, nil
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		logger.WarnContext(ctx, "cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return v, nil
}

func generation(ctx context.Context, c Cache) (int64, error) {
	var gen int64
	if _, err := c.Get(ctx, KeyGeneration, &gen); err != nil {
		return 0, err
	}
	return gen, nil
}

// Invalidate bumps the catalog generation and deletes the catalog keys,
// logging a failure instead of returning it. Stale entries still expire
// after their ttl.
func Invalidate(ctx context.Context, c Cache, logger *slog.Logger) {
	if _, err := c.Incr(ctx, KeyGeneration); err != nil {
		logger.WarnContext(ctx, "cache generation bump failed", slog.String("error", err.Error()))
	}
	if err := c.Delete(ctx, CatalogKeys...); err != nil {
		logger.WarnContext(ctx, "cache invalidation failed", slog.String("error", err.Error()))
	}
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Delete(context.Context, ...string) error { return nil }
func (Nop) Incr(context.Context, string) (int64, error) { return 0, nil }
