package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"satprep/internal/config"
	"satprep/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDatabaseName(t *testing.T) {
	assert.Equal(t, "satprep_test", extractDatabaseName("postgres://u:p@localhost:5432/satprep_test?sslmode=disable"))
	assert.Equal(t, "satprep", extractDatabaseName("postgres://u:p@localhost:5432"))
	assert.Equal(t, "satprep", extractDatabaseName("::not a url"))
}

func TestGetMigrationsPath_FindsRepositoryMigrations(t *testing.T) {
	path, err := GetMigrationsPath()
	require.NoError(t, err)
	assert.Equal(t, "migrations", filepath.Base(path))

	n, err := countUpMigrations(path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

func TestCountUpMigrations_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000001_a.up.sql", "000001_a.down.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
	}
	n, err := countUpMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_RequiresURL(t *testing.T) {
	dm := NewManager(observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	_, err := dm.Open(context.Background(), config.DatabaseConfig{})
	assert.Error(t, err)
}
