package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.False(t, cfg.Server.ExposeErrors)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.EqualValues(t, 10<<20, cfg.Upload.MaxBytes)
	assert.Empty(t, cfg.Storage.Bucket)

	assert.EqualError(t, cfg.Validate(), "auth jwt secret is required")
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EXPENSE_AUTH_JWTSECRET", "s3cret")
	t.Setenv("EXPENSE_AUTH_TOKENTTL", "2h")
	t.Setenv("EXPENSE_SERVER_EXPOSEERRORS", "true")
	t.Setenv("EXPENSE_DATABASE_DRIVER", "mongo")
	t.Setenv("EXPENSE_REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Server.ExposeErrors)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnvAndConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EXPENSE_AUTH_JWTSECRET=from-dotenv\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  addr: 127.0.0.1:9999\nupload:\n  dir: /tmp/in\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("EXPENSE_AUTH_JWTSECRET") })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "/tmp/in", cfg.Upload.Dir)
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.Auth.JWTSecret = "x"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Upload.MaxBytes = 1
	cfg.Database.Driver = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "unknown database driver")

	cfg.Database.Driver = DriverSQLite
	assert.ErrorContains(t, cfg.Validate(), "database path")

	cfg.Database.Path = "x.db"
	assert.NoError(t, cfg.Validate())
}
