package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "CACHE_ENABLED", "CACHE_TTL", "AUTH_ENABLED", "INDEX_CHECK_CRON", "APP_ENV", "WORKER_CONCURRENCY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "*/30 * * * *", cfg.Worker.IndexCheckCron)
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/books.db")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ACCESS_TTL", "1h")
	t.Setenv("WORKER_CONCURRENCY", "12")
	t.Setenv("QUEUE_ENABLED", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/books.db", cfg.Store.SQLitePath)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, 12, cfg.Worker.Concurrency)
	assert.False(t, cfg.UsesRedis())

	t.Setenv("QUEUE_ENABLED", "true")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.UsesRedis())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Environment: "development"},
			Store:  StoreConfig{Driver: "memory"},
			Cache:  CacheConfig{TTL: time.Minute},
			Auth:   AuthConfig{JWTSecret: defaultJWTSecret},
			Worker: WorkerConfig{Concurrency: 1, IndexCheckCron: "*/30 * * * *"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, "STORE_DRIVER"},
		{"sqlite without path", func(c *Config) { c.Store.Driver = "sqlite" }, "SQLITE_PATH"},
		{"cache without ttl", func(c *Config) { c.Cache = CacheConfig{Enabled: true} }, "CACHE_TTL"},
		{"no workers", func(c *Config) { c.Worker.Concurrency = 0 }, "WORKER_CONCURRENCY"},
		{"short cron", func(c *Config) { c.Worker.IndexCheckCron = "*/30 * *" }, "INDEX_CHECK_CRON"},
		{"auth without secret", func(c *Config) { c.Auth = AuthConfig{Enabled: true} }, "JWT_SECRET"},
		{"placeholder secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.Auth.Enabled = true
		}, "JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	cfg := valid()
	cfg.Worker.IndexCheckCron = "@every 10m"
	assert.NoError(t, cfg.Validate())
}

func TestLoadDatabaseConfig(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_RETRY_DELAY", "250ms")
	t.Setenv("DB_MAX_CONNECTIONS", "")
	t.Setenv("DB_MIN_CONNECTIONS", "")

	cfg, err := LoadDatabaseConfig()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, "disable", cfg.SSLMode)
}

func TestLoadDatabaseConfig_ReportsEveryBadValue(t *testing.T) {
	t.Setenv("DB_PORT", "five")
	t.Setenv("DB_CONNECT_TIMEOUT", "soon")

	_, err := LoadDatabaseConfig()
	require.Error(t, err)
	assert.ErrorContains(t, err, "DB_PORT")
	assert.ErrorContains(t, err, "DB_CONNECT_TIMEOUT")
}
