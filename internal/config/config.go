package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config chứa toàn bộ configuration của application, đọc từ environment variables
type Config struct {
	App    AppConfig
	Store  StoreConfig
	Redis  RedisConfig
	Cache  CacheConfig
	Auth   AuthConfig
	Worker WorkerConfig
	Log    LogConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

// StoreConfig selects the book store backend.
// Postgres settings come from LoadDatabaseConfig.
type StoreConfig struct {
	Driver     string // redis, postgres, sqlite, memory
	SQLitePath string
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

// =====================================================
// CACHE / AUTH / WORKER
// =====================================================

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	AccessTTL time.Duration
}

// WorkerConfig - QueueEnabled makes the API hand index rebuilds to cmd/worker.
type WorkerConfig struct {
	QueueEnabled   bool
	Concurrency    int
	IndexCheckCron string
	HealthPort     string
}

type LogConfig struct {
	Level string
}

const defaultJWTSecret = "your-secret-key-change-in-production"

var storeDrivers = []string{"redis", "postgres", "sqlite", "memory"}

// Load đọc config từ environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "book-catalog"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", "redis")),
			SQLitePath: getEnv("SQLITE_PATH", "data/books.db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", false),
			TTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Auth: AuthConfig{
			Enabled:   getEnvBool("AUTH_ENABLED", false),
			JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTTL: getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		},
		Worker: WorkerConfig{
			QueueEnabled:   getEnvBool("QUEUE_ENABLED", false),
			Concurrency:    getEnvInt("WORKER_CONCURRENCY", 5),
			IndexCheckCron: getEnv("INDEX_CHECK_CRON", "*/30 * * * *"),
			HealthPort:     getEnv("WORKER_HEALTH_PORT", "8081"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	// Validate các config quan trọng
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate kiểm tra config có dùng được không
func (c *Config) Validate() error {
	if !contains(storeDrivers, c.Store.Driver) {
		return fmt.Errorf("STORE_DRIVER must be one of %s, got %q", strings.Join(storeDrivers, ", "), c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && c.Store.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH must be set for the sqlite store")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when CACHE_ENABLED is set")
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	if n := len(strings.Fields(c.Worker.IndexCheckCron)); n != 5 && !strings.HasPrefix(c.Worker.IndexCheckCron, "@") {
		return fmt.Errorf("INDEX_CHECK_CRON must have 5 fields, got %d", n)
	}

	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET must be set when AUTH_ENABLED is set")
		}
		// Production không được chạy với placeholder secret
		if c.App.Environment == "production" && c.Auth.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	return nil
}

// UsesRedis cho biết có component nào cần Redis connection không.
func (c *Config) UsesRedis() bool {
	return c.Store.Driver == "redis" || c.Cache.Enabled || c.Worker.QueueEnabled
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
