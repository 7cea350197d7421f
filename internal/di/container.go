// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"satprep/internal/config"
	"satprep/internal/database"
	"satprep/internal/observability"
	"satprep/internal/serviceinterfaces"
	"satprep/internal/services"
	contextutils "satprep/internal/utils"
)

const (
	serviceCatalogCache = "catalog_cache"
	serviceLearningPath = "learning_path"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetLearningPathService() (serviceinterfaces.LearningPathService, error)
	GetCatalogCache() (services.CatalogCache, error)
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Option customizes container initialization
type Option func(*ServiceContainer)

// WithoutMigrations connects to the database without applying pending migrations
func WithoutMigrations() Option {
	return func(sc *ServiceContainer) {
		sc.skipMigrations = true
	}
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg            *config.Config
	logger         *observability.Logger
	dbManager      *database.Manager
	db             *sql.DB
	services       map[string]interface{}
	mu             sync.RWMutex
	shutdownFuncs  []func(context.Context) error
	skipMigrations bool
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger, opts ...Option) *ServiceContainer {
	sc := &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Initialize opens the database and wires the services
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)

	var (
		db  *sql.DB
		err error
	)
	if sc.skipMigrations {
		db, err = sc.dbManager.Open(ctx, sc.cfg.Database)
	} else {
		db, err = sc.dbManager.InitDB(ctx, sc.cfg.Database)
	}
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	sc.initializeServices(ctx, db)
	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetLearningPathService returns the recommendation engine
func (sc *ServiceContainer) GetLearningPathService() (serviceinterfaces.LearningPathService, error) {
	return GetServiceAs[serviceinterfaces.LearningPathService](sc, serviceLearningPath)
}

// GetCatalogCache returns the subtopic catalog cache
func (sc *ServiceContainer) GetCatalogCache() (services.CatalogCache, error) {
	return GetServiceAs[services.CatalogCache](sc, serviceCatalogCache)
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown releases resources in reverse order of acquisition
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs the shutdown funcs once, newest first
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err, map[string]interface{}{"step": i})
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errs) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errs)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(ctx context.Context, db *sql.DB) {
	cache := services.NewCatalogCache(sc.cfg.Redis)
	sc.services[serviceCatalogCache] = cache
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return cache.Close()
	})

	sc.services[serviceLearningPath] = services.NewLearningPathService(db, cache, sc.logger)

	sc.logger.Info(ctx, "Services initialized", map[string]interface{}{
		"redis_enabled": sc.cfg.Redis.Enabled,
		"services":      len(sc.services),
	})
}
