package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"satprep/internal/config"
	contextutils "satprep/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogCache_DisabledIsNoop(t *testing.T) {
	cache := NewCatalogCache(config.RedisConfig{Enabled: false})
	_, ok := cache.(NoopCatalogCache)
	assert.True(t, ok)
}

func TestNewCatalogCache_EnabledIsRedis(t *testing.T) {
	cache := NewCatalogCache(config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1", CatalogTTL: time.Minute})
	defer cache.Close()

	_, ok := cache.(*RedisCatalogCache)
	assert.True(t, ok)
}

func TestNoopCatalogCache(t *testing.T) {
	cache := NoopCatalogCache{}
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testCatalog()))
	catalog, found, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, catalog)
	assert.NoError(t, cache.Invalidate(ctx))
	assert.NoError(t, cache.Close())
}

func TestRedisCatalogCache_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := NewRedisCatalogCache(client, time.Minute)
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, found, err := cache.Get(ctx)
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, errors.Is(err, contextutils.ErrCacheUnavailable))

	err = cache.Set(ctx, testCatalog())
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrCacheUnavailable))

	assert.Error(t, cache.Invalidate(ctx))
}
