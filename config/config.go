// Package config loads service settings from the environment.
//
// An optional .env file is read first (values already present in the
// environment win), then every setting falls back to a default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/payroll-engine/payroll"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds everything the server needs at startup.
type Config struct {
	HTTP struct {
		Port           int
		MaxUploadBytes int64
	}
	DBDriver string
	SQLite   struct {
		Path string
	}
	Database DatabaseConfig
	Redis    RedisConfig
	Log      struct {
		Level  string
		Format string
	}
	AmountFormat payroll.AmountFormat
}

// DatabaseConfig describes the PostgreSQL connection.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN returns a lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig describes the report cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration

	// WarmInterval drives periodic report regeneration; 0 means only after uploads.
	WarmInterval time.Duration
}

// Enabled reports whether a redis address is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Load reads envFiles (default ".env", skipped when absent) and the
// process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	cfg := &Config{}
	cfg.HTTP.Port = parseInt(getEnv("PORT", "3000"), 3000)
	cfg.HTTP.MaxUploadBytes = int64(parseInt(getEnv("UPLOAD_MAX_BYTES", "10485760"), 10<<20))

	cfg.DBDriver = getEnv("DB_DRIVER", DriverSQLite)
	cfg.SQLite.Path = getEnv("DB_PATH", "payroll.db")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("POSTGRESQL_NAME", "postgres")
	cfg.Database.Password = getEnv("POSTGRESQL_PASS", "")
	cfg.Database.Database = getEnv("DB_NAME", "payroll")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Redis.TTL = parseDuration(getEnv("REPORT_CACHE_TTL", "10m"), 10*time.Minute)
	cfg.Redis.WarmInterval = parseDuration(getEnv("REPORT_WARM_INTERVAL", "0s"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	format, err := payroll.ParseAmountFormat(getEnv("AMOUNT_FORMAT", string(payroll.FormatLegacy)))
	if err != nil {
		return nil, err
	}
	cfg.AmountFormat = format

	if cfg.DBDriver != DriverSQLite && cfg.DBDriver != DriverPostgres {
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
