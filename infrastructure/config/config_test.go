package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.DataBackend)
	assert.Equal(t, "app_core", cfg.TableName)
	assert.Equal(t, "GSI1", cfg.GSI1Name)
	assert.Equal(t, "GSI2", cfg.GSI2Name)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DATA_BACKEND", "dynamodb")
	t.Setenv("TABLE_NAME", "carelog_test")
	t.Setenv("DDB_ENDPOINT", "http://localhost:8000")
	t.Setenv("DDB_CREATE_TABLES", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendDynamoDB, cfg.DataBackend)
	assert.Equal(t, "carelog_test", cfg.TableName)
	assert.Equal(t, "http://localhost:8000", cfg.Endpoint)
	assert.True(t, cfg.CreateTables)
}

func TestServerTimeoutsFromEnv(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT_SECS", "5")
	t.Setenv("SERVER_WRITE_TIMEOUT_SECS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.ReadTimeoutSecs)
	// Unparseable values keep the default.
	assert.Equal(t, 15, cfg.WriteTimeoutSecs)
	assert.Equal(t, 30, cfg.ShutdownGraceSecs)
}

func TestLegacyUseDynamoDBFlag(t *testing.T) {
	t.Setenv("USE_DYNAMODB", "1")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendDynamoDB, cfg.DataBackend)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataBackend: dynamodb\ntableName: from_file\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendDynamoDB, cfg.DataBackend)
	assert.Equal(t, "from_file", cfg.TableName)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tableName: from_file\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TABLE_NAME", "from_env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.TableName)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("DATA_BACKEND", "postgres")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	_, err = LoadConfig()
	assert.NoError(t, err)
}
