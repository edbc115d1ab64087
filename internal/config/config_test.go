package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "catalog")
	t.Setenv("DB_NAME", "catalog")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Worker.LowStockInterval)
	assert.Equal(t, time.Second, cfg.Instrumentation.SlowCallThreshold)
	assert.Equal(t, "6379", cfg.Redis.Port)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_IncompleteDatabase(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_HOST", "")

	_, err := Load()
	assert.ErrorContains(t, err, "database configuration incomplete")
}

func TestLoad_MemoryDriverSkipsDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_HOST", "")
	t.Setenv("STORAGE_DRIVER", StorageMemory)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load()
	assert.ErrorContains(t, err, "unsupported STORAGE_DRIVER")
}

func TestLoad_InvalidDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CACHE_TTL", "-5s")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid CACHE_TTL")
}

func TestLoad_CORSHostsAndLoginLimit(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CORS_ALLOWED_HOSTS", " admin.example.com, ,localhost:5173 ")
	t.Setenv("LOGIN_ATTEMPTS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"admin.example.com", "localhost:5173"}, cfg.CORSAllowedHosts)
	assert.Equal(t, 3, cfg.Worker.LoginAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Worker.LoginWindow)
}
