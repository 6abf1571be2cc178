package repository

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"book-catalog/internal/domains/book"
)

// Store drivers accepted by New (STORE_DRIVER).
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Connections holds the opened clients; only the one the driver needs is read.
type Connections struct {
	Redis    *redis.Client
	Postgres *pgxpool.Pool
	SQLite   *sql.DB
}

// New creates a book repository for driver.
//
// Supported drivers:
//
//	"redis"    - HASH per book plus a RediSearch index (default)
//	"postgres" - one table, btree and GIN indexes
//	"sqlite"   - one table in a local file
//	"memory"   - in-process map, lost on restart
func New(driver string, conns Connections, spec book.IndexSpec) (book.Repository, error) {
	switch driver {
	case DriverRedis, "":
		if conns.Redis == nil {
			return nil, fmt.Errorf("store driver %q needs a redis client", DriverRedis)
		}
		return NewRedisRepository(conns.Redis, spec), nil
	case DriverPostgres:
		if conns.Postgres == nil {
			return nil, fmt.Errorf("store driver %q needs a postgres pool", DriverPostgres)
		}
		return NewPostgresRepository(conns.Postgres, spec), nil
	case DriverSQLite:
		if conns.SQLite == nil {
			return nil, fmt.Errorf("store driver %q needs a sqlite handle", DriverSQLite)
		}
		return NewSQLiteRepository(conns.SQLite, spec), nil
	case DriverMemory:
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q (supported: redis, postgres, sqlite, memory)", driver)
	}
}
