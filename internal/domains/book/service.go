package book

import (
	"context"

	"github.com/xuri/excelize/v2"
)

// Service defines business operations for the book catalog.
type Service interface {
	// EnsureIndex declares BookIndex on the store (startup, scheduled check).
	// Errors: ErrIndexCreation
	EnsureIndex(ctx context.Context) error

	// RebuildIndex drops and recreates the index; stored books are kept.
	RebuildIndex(ctx context.Context) error

	// ScheduleIndexRebuild enqueues a rebuild when a queue is configured and
	// returns the task id; without a queue it rebuilds inline and returns "".
	ScheduleIndexRebuild(ctx context.Context, requestedBy string) (string, error)

	// Create stores a new book under a generated id.
	// Errors: ErrValidationFailed
	Create(ctx context.Context, req *BookRequest) (string, error)

	// Replace creates or fully replaces the book at id.
	// Errors: ErrValidationFailed
	Replace(ctx context.Context, id string, req *BookRequest) (string, error)

	// Get fetches one book.
	// Errors: ErrBookNotFound
	Get(ctx context.Context, id string) (*Book, error)

	// Delete removes a book. Deleting a missing id succeeds.
	Delete(ctx context.Context, id string) error

	List(ctx context.Context) ([]Book, error)
	ListByAuthor(ctx context.Context, author string) ([]Book, error)

	// ListByYearRange returns books with from <= year <= to.
	// Errors: ErrValidationFailed when from > to
	ListByYearRange(ctx context.Context, from, to int) ([]Book, error)

	// SearchSummary runs a full-text match over summary.
	// Errors: ErrValidationFailed on empty text
	SearchSummary(ctx context.Context, text string) ([]Book, error)

	// Export builds a spreadsheet of every book.
	Export(ctx context.Context) (*excelize.File, error)

	// Health pings the store and, when configured, the cache.
	Health(ctx context.Context) HealthStatus
}
