package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"book-catalog/internal/config"
	"book-catalog/internal/domains/book"
	bookHandler "book-catalog/internal/domains/book/handler"
	bookRepo "book-catalog/internal/domains/book/repository"
	bookService "book-catalog/internal/domains/book/service"
	infraCache "book-catalog/internal/infrastructure/cache"
	"book-catalog/internal/infrastructure/database"
	"book-catalog/internal/infrastructure/queue"
	"book-catalog/pkg/cache"
	"book-catalog/pkg/jwt"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container chứa tất cả dependencies của application.
// Đây là root của dependency graph cho cả cmd/api và cmd/worker.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	// Chỉ khởi tạo những gì config yêu cầu, phần còn lại để nil.

	Config      *config.Config
	Redis       *infraCache.RedisClient // store driver redis, cache or queue
	Postgres    *database.PostgresDB    // store driver postgres
	SQLite      *sql.DB                 // store driver sqlite
	Cache       cache.Cache             // nil unless CACHE_ENABLED
	AsynqClient *asynq.Client           // nil unless QUEUE_ENABLED
	JWTManager  *jwt.Manager

	// ========================================
	// BOOK DOMAIN
	// ========================================

	BookRepo    book.Repository
	BookService *bookService.BookService
	BookHandler *bookHandler.BookHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer khởi tạo dependency graph theo thứ tự:
// config, infrastructure, repository, index, service, handler.
// Startup sẽ fail nếu không define được book index.
func NewContainer() (*Container, error) {
	log.Info().Msg("🔧 Initializing DI Container...")

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Info().
		Str("env", cfg.App.Environment).
		Str("store", cfg.Store.Driver).
		Msg("✅ Config loaded")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// ========================================
	// STEP 2: INITIALIZE INFRASTRUCTURE
	// ========================================
	if err := c.initInfrastructure(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}

	// ========================================
	// STEP 3: REPOSITORY
	// ========================================
	c.BookRepo, err = bookRepo.New(cfg.Store.Driver, bookRepo.Connections{
		Redis:    c.redisClient(),
		Postgres: c.postgresPool(),
		SQLite:   c.SQLite,
	}, book.BookIndex)
	if err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to init book repository: %w", err)
	}

	// ========================================
	// STEP 4: SERVICE + INDEX
	// ========================================
	c.BookService = bookService.NewBookService(c.BookRepo, book.BookIndex, c.serviceOptions()...)

	if err := c.BookService.EnsureIndex(ctx); err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to define book index: %w", err)
	}
	log.Info().Str("index", book.BookIndex.IndexName()).Msg("✅ Book index ready")

	// ========================================
	// STEP 5: HANDLERS
	// ========================================
	c.BookHandler = bookHandler.NewBookHandler(c.BookService, book.InfoResponse{
		Name:    cfg.App.Name,
		Version: cfg.App.Version,
		Store:   cfg.Store.Driver,
	})

	log.Info().Msg("🎉 DI Container initialized successfully")
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initInfrastructure(ctx context.Context) error {
	cfg := c.Config

	if cfg.UsesRedis() {
		c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
		if err := c.Redis.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	switch cfg.Store.Driver {
	case bookRepo.DriverPostgres:
		dbConfig, err := config.LoadDatabaseConfig()
		if err != nil {
			return fmt.Errorf("failed to load database config: %w", err)
		}
		db := database.NewPostgresDB(dbConfig)
		if err := db.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.Postgres = db

	case bookRepo.DriverSQLite:
		db, err := database.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite: %w", err)
		}
		c.SQLite = db
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("✅ SQLite opened")
	}

	if cfg.Cache.Enabled {
		c.Cache = infraCache.NewRedisCache(c.Redis)
		log.Info().Dur("ttl", cfg.Cache.TTL).Msg("✅ Book cache enabled")
	}

	if cfg.Worker.QueueEnabled {
		c.AsynqClient = queue.NewClient(cfg.Redis)
		log.Info().Msg("✅ Asynq client ready")
	}

	if cfg.Auth.Enabled {
		c.JWTManager = jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	}

	return nil
}

func (c *Container) serviceOptions() []bookService.Option {
	var opts []bookService.Option
	if c.Cache != nil {
		opts = append(opts, bookService.WithCache(c.Cache, c.Config.Cache.TTL))
	}
	if c.AsynqClient != nil {
		opts = append(opts, bookService.WithQueue(c.AsynqClient))
	}
	return opts
}

// ========================================
// HELPER METHODS
// ========================================

func (c *Container) redisClient() *redis.Client {
	if c.Redis == nil {
		return nil
	}
	return c.Redis.Client
}

func (c *Container) postgresPool() *pgxpool.Pool {
	if c.Postgres == nil {
		return nil
	}
	return c.Postgres.Pool
}

// Cleanup giải phóng tất cả resources đã mở. An toàn với container mới build một phần.
func (c *Container) Cleanup() {
	log.Info().Msg("🧹 Cleaning up container resources...")

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to close asynq client")
		}
	}

	if c.Postgres != nil {
		c.Postgres.Close()
		log.Info().Msg("✅ Database connections closed")
	}

	if c.SQLite != nil {
		if err := c.SQLite.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to close sqlite")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to close Redis")
		} else {
			log.Info().Msg("✅ Redis connections closed")
		}
	}

	log.Info().Msg("✅ Container cleanup completed")
}
