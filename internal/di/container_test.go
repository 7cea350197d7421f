package di

import (
	"context"
	"errors"
	"testing"

	"satprep/internal/config"
	"satprep/internal/observability"
	"satprep/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(opts ...Option) *ServiceContainer {
	return NewServiceContainer(&config.Config{}, observability.NewLogger(nil), opts...)
}

func TestNewServiceContainer(t *testing.T) {
	cfg := &config.Config{}
	logger := observability.NewLogger(nil)
	sc := NewServiceContainer(cfg, logger)

	assert.Same(t, cfg, sc.GetConfig())
	assert.Same(t, logger, sc.GetLogger())
	assert.Nil(t, sc.GetDatabase())
	assert.False(t, sc.skipMigrations)

	assert.True(t, newTestContainer(WithoutMigrations()).skipMigrations)
}

func TestGetService_NotFound(t *testing.T) {
	sc := newTestContainer()

	_, err := sc.GetService("missing")
	assert.Error(t, err)

	_, err = sc.GetLearningPathService()
	assert.Error(t, err)
}

func TestGetServiceAs_WrongType(t *testing.T) {
	sc := newTestContainer()
	sc.services[serviceCatalogCache] = "not a cache"

	_, err := sc.GetCatalogCache()
	assert.Error(t, err)
}

func TestInitializeServices_WiresNoopCacheWhenRedisDisabled(t *testing.T) {
	sc := newTestContainer()
	sc.initializeServices(context.Background(), nil)

	cache, err := sc.GetCatalogCache()
	require.NoError(t, err)
	assert.IsType(t, services.NoopCatalogCache{}, cache)

	svc, err := sc.GetLearningPathService()
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestInitialize_RequiresDatabaseURL(t *testing.T) {
	sc := newTestContainer()

	err := sc.Initialize(context.Background())
	assert.Error(t, err)
	assert.Nil(t, sc.GetDatabase())
}

func TestShutdown_RunsInReverseOrderOnce(t *testing.T) {
	sc := newTestContainer()

	var order []int
	sc.shutdownFuncs = []func(context.Context) error{
		func(context.Context) error { order = append(order, 1); return nil },
		func(context.Context) error { order = append(order, 2); return errors.New("close failed") },
		func(context.Context) error { order = append(order, 3); return nil },
	}

	err := sc.Shutdown(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []int{3, 2, 1}, order)

	require.NoError(t, sc.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}
