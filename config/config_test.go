package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "payroll.db", cfg.SQLite.Path)
	assert.Equal(t, "payroll", cfg.Database.Database)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, payroll.FormatLegacy, cfg.AmountFormat)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("POSTGRESQL_NAME", "payroll_user")
	t.Setenv("POSTGRESQL_PASS", "secret")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REPORT_CACHE_TTL", "30s")
	t.Setenv("AMOUNT_FORMAT", "fixed")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "host=localhost port=5432 user=payroll_user password=secret dbname=payroll sslmode=disable", cfg.Database.DSN())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, payroll.FormatFixed, cfg.AmountFormat)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_NAME=payroll_from_file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("DB_NAME") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "payroll_from_file", cfg.Database.Database)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("AMOUNT_FORMAT", "euro")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	t.Setenv("AMOUNT_FORMAT", "")
	t.Setenv("DB_DRIVER", "mysql")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
