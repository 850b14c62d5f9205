package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		entity    string
		env       string
		workspace string
		want      string
	}{
		{EntityOrganisation, "local", "", "ftrs-dos-local-database-organisation"},
		{EntityOrganisation, "dev", "test", "ftrs-dos-dev-database-organisation-test"},
		{EntityHealthcareService, "prod", "", "ftrs-dos-prod-database-healthcare-service"},
		{EntityState, "qa", "workspace1", "ftrs-dos-qa-database-data-migration-state-workspace1"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, TableName(tt.entity, tt.env, tt.workspace))
		})
	}
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: dev
workspace: feature1
log_level: debug
metadata_cache_ttl: 5m
tables:
  state: custom-state
source:
  host: dos-db.internal
  user: migration
  breaker_timeout: 10s
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("AWS_REGION", "eu-west-2")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("WORKSPACE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("STATE_TABLE", "")
	t.Setenv("SOURCE_DB_DSN", "")
	t.Setenv("SOURCE_DB_HOST", "")
	t.Setenv("METADATA_CACHE_TTL", "")
	t.Setenv("SOURCE_DB_PASSWORD", "secret")
	t.Setenv("ENABLE_TRACING", "true")

	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.MetadataCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Source.BreakerTimeout)
	assert.True(t, cfg.EnableTracing)

	assert.Equal(t, "custom-state", cfg.TableName(EntityState))
	assert.Equal(t, "ftrs-dos-dev-database-location-feature1", cfg.TableName(EntityLocation))

	assert.Equal(t,
		"host=dos-db.internal port=5432 dbname=pathwaysdos sslmode=require user=migration password=secret",
		cfg.Source.ConnectionString(),
	)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogLevel")
}

func TestSource_Validate(t *testing.T) {
	source := defaults().Source
	err := source.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Host")

	source.DSN = "postgres://localhost/dos"
	assert.NoError(t, source.Validate())

	source.MaxOpenConns = 0
	assert.Error(t, source.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSource_DSNOverrides(t *testing.T) {
	source := Source{Host: "ignored", DSN: "postgres://localhost/dos"}
	assert.Equal(t, "postgres://localhost/dos", source.ConnectionString())
}
