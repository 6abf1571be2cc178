package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"book-catalog/internal/shared"
	"book-catalog/pkg/logger"
)

type Scheduler struct {
	scheduler      *asynq.Scheduler
	indexCheckCron string
}

func NewScheduler(redisOpt asynq.RedisClientOpt, indexCheckCron string) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler:      scheduler,
		indexCheckCron: indexCheckCron,
	}
}

// RegisterIndexJobs registers every periodic book index job.
func (s *Scheduler) RegisterIndexJobs() error {
	return s.registerEnsureIndexJob()
}

// ================================================
// JOB: Ensure Book Index (INDEX_CHECK_CRON, default every 30 minutes)
// ================================================
// Recreates the index if it was dropped behind the API's back
// (FLUSHALL, failover to an empty replica). A no-op when it exists.
func (s *Scheduler) registerEnsureIndexJob() error {
	payload, err := json.Marshal(shared.IndexTaskPayload{Reason: "scheduled"})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeEnsureBookIndex, payload)

	entryID, err := s.scheduler.Register(
		s.indexCheckCron,
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(time.Minute),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register EnsureBookIndex job", err)
		return fmt.Errorf("register ensure index job: %w", err)
	}

	logger.Info("✓ Registered EnsureBookIndex", map[string]interface{}{
		"cron":     s.indexCheckCron,
		"entry_id": entryID,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
