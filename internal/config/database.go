package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"book-catalog/internal/infrastructure/database"
)

// LoadDatabaseConfig reads the Postgres store settings from environment variables.
// Malformed numbers and durations are reported together instead of falling back to defaults.
func LoadDatabaseConfig() (*database.DBConfig, error) {
	p := &envParser{}

	cfg := &database.DBConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     p.parseInt("DB_PORT", "5432"),
		Username: getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "books"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),

		MaxConns:          int32(p.parseInt("DB_MAX_CONNECTIONS", "10")),
		MinConns:          int32(p.parseInt("DB_MIN_CONNECTIONS", "2")),
		MaxConnLifetime:   p.parseDuration("DB_MAX_CONN_LIFETIME", "5m"),
		MaxConnIdleTime:   p.parseDuration("DB_MAX_CONN_IDLE_TIME", "1m"),
		HealthCheckPeriod: p.parseDuration("DB_HEALTH_CHECK_PERIOD", "1m"),

		MaxRetries:     p.parseInt("DB_MAX_RETRIES", "5"),
		RetryDelay:     p.parseDuration("DB_RETRY_DELAY", "1s"),
		ConnectTimeout: p.parseDuration("DB_CONNECT_TIMEOUT", "10s"),
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNECTIONS (%d) exceeds DB_MAX_CONNECTIONS (%d)", cfg.MinConns, cfg.MaxConns)
	}
	return cfg, nil
}

// envParser gom các parse errors để report tất cả biến sai cùng một lúc.
type envParser struct {
	errs []error
}

func (p *envParser) parseInt(key, def string) int {
	v, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return v
}

func (p *envParser) parseDuration(key, def string) time.Duration {
	v, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return v
}
