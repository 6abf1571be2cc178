package main

import (
	"github.com/rs/zerolog/log"

	"book-catalog/internal/config"
	"book-catalog/internal/infrastructure/queue"
)

// asynqScheduler wraps queue.Scheduler with additional functionality
type asynqScheduler struct {
	*queue.Scheduler
}

// setupScheduler creates the scheduler and registers the periodic index jobs
func setupScheduler(cfg *config.Config) *asynqScheduler {
	scheduler := queue.NewScheduler(queue.RedisOpt(cfg.Redis), cfg.Worker.IndexCheckCron)

	if err := scheduler.RegisterIndexJobs(); err != nil {
		log.Fatal().Err(err).Msg("[Scheduler] Failed to register")
	}

	go func() {
		log.Info().Msg("[Scheduler] Starting...")
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("[Scheduler] Failed")
		}
	}()

	return &asynqScheduler{Scheduler: scheduler}
}

// Shutdown gracefully shuts down the scheduler
func (s *asynqScheduler) Shutdown() {
	log.Info().Msg("[Scheduler] Shutting down...")
	s.Scheduler.Shutdown()
	log.Info().Msg("[Scheduler] ✓ Stopped")
}
