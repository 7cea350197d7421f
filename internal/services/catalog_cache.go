package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"satprep/internal/config"
	"satprep/internal/models"
	"satprep/internal/observability"
	contextutils "satprep/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// catalogCacheKey is versioned so a catalog shape change never reads stale JSON
const catalogCacheKey = "satprep:catalog:v1"

// CatalogCache stores the subtopic catalog. A miss is (nil, false, nil).
type CatalogCache interface {
	Get(ctx context.Context) ([]models.CatalogSubtopic, bool, error)
	Set(ctx context.Context, catalog []models.CatalogSubtopic) error
	Invalidate(ctx context.Context) error
	Close() error
}

// NewCatalogCache returns a redis-backed cache when enabled, otherwise a no-op cache
func NewCatalogCache(cfg config.RedisConfig) CatalogCache {
	if !cfg.Enabled {
		return NoopCatalogCache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisCatalogCache(client, cfg.CatalogTTL)
}

// RedisCatalogCache keeps the catalog as one JSON value with a TTL
type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCatalogCache wraps an existing redis client
func NewRedisCatalogCache(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{client: client, ttl: ttl}
}

// Get reads and decodes the cached catalog
func (c *RedisCatalogCache) Get(ctx context.Context) (catalog []models.CatalogSubtopic, found bool, err error) {
	ctx, span := observability.TraceCacheFunction(ctx, "get_catalog", attribute.String("cache.key", catalogCacheKey))
	defer observability.FinishSpan(span, &err)

	val, err := c.client.Get(ctx, catalogCacheKey).Result()
	if errors.Is(err, redis.Nil) {
		observability.CatalogCacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		observability.CatalogCacheRequestsTotal.WithLabelValues("error").Inc()
		return nil, false, contextutils.WrapError(contextutils.ErrCacheUnavailable, err.Error())
	}

	if err := json.Unmarshal([]byte(val), &catalog); err != nil {
		observability.CatalogCacheRequestsTotal.WithLabelValues("error").Inc()
		return nil, false, contextutils.WrapErrorf(err, "failed to decode cached catalog")
	}
	observability.CatalogCacheRequestsTotal.WithLabelValues("hit").Inc()
	return catalog, true, nil
}

// Set encodes and stores the catalog with the configured TTL
func (c *RedisCatalogCache) Set(ctx context.Context, catalog []models.CatalogSubtopic) (err error) {
	ctx, span := observability.TraceCacheFunction(ctx, "set_catalog", attribute.Int("catalog.size", len(catalog)))
	defer observability.FinishSpan(span, &err)

	data, err := json.Marshal(catalog)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to encode catalog")
	}
	if err := c.client.Set(ctx, catalogCacheKey, data, c.ttl).Err(); err != nil {
		return contextutils.WrapError(contextutils.ErrCacheUnavailable, err.Error())
	}
	return nil
}

// Invalidate drops the cached catalog
func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogCacheKey).Err(); err != nil {
		return contextutils.WrapError(contextutils.ErrCacheUnavailable, err.Error())
	}
	return nil
}

// Close releases the redis connection pool
func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

// NoopCatalogCache always misses
type NoopCatalogCache struct{}

// Get always reports a miss
func (NoopCatalogCache) Get(context.Context) ([]models.CatalogSubtopic, bool, error) {
	return nil, false, nil
}

// Set discards the catalog
func (NoopCatalogCache) Set(context.Context, []models.CatalogSubtopic) error { return nil }

// Invalidate does nothing
func (NoopCatalogCache) Invalidate(context.Context) error { return nil }

// Close does nothing
func (NoopCatalogCache) Close() error { return nil }
