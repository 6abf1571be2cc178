package queue

import (
	"github.com/hibiken/asynq"

	"book-catalog/internal/config"
)

// RedisOpt builds the asynq connection from the shared Redis settings.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Host,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewClient - asynq client used by the API to enqueue index tasks
func NewClient(cfg config.RedisConfig) *asynq.Client {
	return asynq.NewClient(RedisOpt(cfg))
}
