package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"satprep/internal/config"
	"satprep/internal/observability"
	"satprep/internal/serviceinterfaces"
	"satprep/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContainer struct {
	cfg         *config.Config
	svcErr      error
	shutdownErr error
	shutdowns   int
}

func (f *fakeContainer) GetService(string) (interface{}, error) { return nil, errors.New("unused") }

func (f *fakeContainer) GetLearningPathService() (serviceinterfaces.LearningPathService, error) {
	if f.svcErr != nil {
		return nil, f.svcErr
	}
	return services.NewLearningPathService(nil, nil, observability.NewLogger(nil)), nil
}

func (f *fakeContainer) GetCatalogCache() (services.CatalogCache, error) {
	return services.NoopCatalogCache{}, nil
}

func (f *fakeContainer) GetDatabase() *sql.DB { return nil }
func (f *fakeContainer) GetConfig() *config.Config { return f.cfg }
func (f *fakeContainer) GetLogger() *observability.Logger { return observability.NewLogger(nil) }
func (f *fakeContainer) Initialize(context.Context) error { return nil }
func (f *fakeContainer) Shutdown(context.Context) error {
	f.shutdowns++
	return f.shutdownErr
}

func testConfig() *config.Config {
	return &config.Config{
		Server:        config.ServerConfig{Port: "0", SessionSecret: "test-session-secret"},
		OpenTelemetry: config.OpenTelemetryConfig{ServiceName: "satprep-test"},
	}
}

func TestNewApplication(t *testing.T) {
	app, err := NewApplication(&fakeContainer{cfg: testConfig()})
	require.NoError(t, err)
	assert.Equal(t, ":0", app.server.Addr)

	w := httptest.NewRecorder()
	app.server.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewApplication_MissingService(t *testing.T) {
	_, err := NewApplication(&fakeContainer{cfg: testConfig(), svcErr: errors.New("not registered")})
	assert.Error(t, err)
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	container := &fakeContainer{cfg: testConfig()}
	app, err := NewApplication(container)
	require.NoError(t, err)
	app.server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.Run(ctx))

	require.NoError(t, app.Shutdown(context.Background()))
	assert.Equal(t, 1, container.shutdowns)
}

func TestApplication_ShutdownReportsContainerError(t *testing.T) {
	container := &fakeContainer{cfg: testConfig(), shutdownErr: errors.New("close failed")}
	app, err := NewApplication(container)
	require.NoError(t, err)

	assert.Error(t, app.Shutdown(context.Background()))
}
