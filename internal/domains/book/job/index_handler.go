package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"book-catalog/internal/shared"
)

// IndexMaintainer is the part of the book service the index jobs need.
type IndexMaintainer interface {
	EnsureIndex(ctx context.Context) error
	RebuildIndex(ctx context.Context) error
}

// RebuildIndexHandler drops and recreates the book index (manual trigger from /admin)
type RebuildIndexHandler struct {
	books IndexMaintainer
}

func NewRebuildIndexHandler(books IndexMaintainer) *RebuildIndexHandler {
	return &RebuildIndexHandler{books: books}
}

// ProcessTask rebuilds the index. Stored books are kept.
func (h *RebuildIndexHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := decodePayload(task)
	if err != nil {
		return err
	}

	log.Info().
		Str("reason", payload.Reason).
		Str("requested_by", payload.RequestedBy).
		Dur("queued_for", time.Since(payload.RequestedAt)).
		Msg("Rebuilding book index")

	if err := h.books.RebuildIndex(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to rebuild book index")
		return fmt.Errorf("rebuild index: %w", err)
	}

	log.Info().Msg("Book index rebuilt successfully")
	return nil
}

// EnsureIndexHandler re-runs the idempotent index definition (periodic job)
type EnsureIndexHandler struct {
	books IndexMaintainer
}

func NewEnsureIndexHandler(books IndexMaintainer) *EnsureIndexHandler {
	return &EnsureIndexHandler{books: books}
}

func (h *EnsureIndexHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := decodePayload(task)
	if err != nil {
		return err
	}

	if err := h.books.EnsureIndex(ctx); err != nil {
		log.Error().
			Err(err).
			Str("reason", payload.Reason).
			Msg("Failed to ensure book index")
		return fmt.Errorf("ensure index: %w", err)
	}

	log.Debug().Str("reason", payload.Reason).Msg("Book index ensured")
	return nil
}

// decodePayload accepts an empty payload; a malformed one is not retried.
func decodePayload(task *asynq.Task) (shared.IndexTaskPayload, error) {
	var payload shared.IndexTaskPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Str("type", task.Type()).Msg("Failed to unmarshal index task payload")
		return payload, fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	return payload, nil
}
