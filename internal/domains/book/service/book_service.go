package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"book-catalog/internal/domains/book"
	"book-catalog/internal/shared"
	"book-catalog/pkg/cache"
)

const cacheKeyPrefix = "books:cache:"

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// BookService - Implements book.Service
type BookService struct {
	repo     book.Repository
	spec     book.IndexSpec
	cache    cache.Cache
	cacheTTL time.Duration
	queue    TaskEnqueuer
	newID    func() (string, error)
}

// Option configures optional collaborators of BookService.
type Option func(*BookService)

// WithCache enables the read-through cache for single-book lookups.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *BookService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithQueue makes index rebuilds asynchronous.
func WithQueue(q TaskEnqueuer) Option {
	return func(s *BookService) { s.queue = q }
}

// WithIDGenerator overrides the UUIDv7 generator.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *BookService) { s.newID = fn }
}

// NewBookService - Constructor with DI
func NewBookService(repo book.Repository, spec book.IndexSpec, opts ...Option) *BookService {
	s := &BookService{
		repo:  repo,
		spec:  spec,
		newID: newUUIDv7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ book.Service = (*BookService)(nil)

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ========================= INDEX =====================

func (s *BookService) EnsureIndex(ctx context.Context) error {
	return s.repo.DefineAndIndex(ctx, s.spec)
}

func (s *BookService) RebuildIndex(ctx context.Context) error {
	start := time.Now()
	if err := s.repo.DropIndex(ctx, s.spec); err != nil {
		return fmt.Errorf("%w: %w", book.ErrIndexCreation, err)
	}
	if err := s.repo.DefineAndIndex(ctx, s.spec); err != nil {
		return err
	}
	log.Info().
		Str("index", s.spec.IndexName()).
		Dur("took", time.Since(start)).
		Msg("Index rebuilt")
	return nil
}

func (s *BookService) ScheduleIndexRebuild(ctx context.Context, requestedBy string) (string, error) {
	if s.queue == nil {
		return "", s.RebuildIndex(ctx)
	}

	payload, err := json.Marshal(shared.IndexTaskPayload{
		Reason:      "manual",
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal rebuild payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeRebuildBookIndex, payload)
	info, err := s.queue.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		return "", book.Unavailable("enqueue index rebuild", err)
	}

	log.Info().
		Str("task_id", info.ID).
		Str("requested_by", requestedBy).
		Msg("Index rebuild enqueued")
	return info.ID, nil
}

// ========================= CRUD =====================

func (s *BookService) Create(ctx context.Context, req *book.BookRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("generate book id: %w", err)
	}

	if err := s.repo.Save(ctx, req.ToBook(id)); err != nil {
		return "", err
	}

	log.Debug().Str("book_id", id).Msg("Book created")
	return id, nil
}

func (s *BookService) Replace(ctx context.Context, id string, req *book.BookRequest) (string, error) {
	if err := book.ValidateID(id); err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	if err := s.repo.Save(ctx, req.ToBook(id)); err != nil {
		return "", err
	}
	s.invalidate(ctx, id)

	log.Debug().Str("book_id", id).Msg("Book replaced")
	return id, nil
}

func (s *BookService) Get(ctx context.Context, id string) (*book.Book, error) {
	// No book can be stored under an id PUT would reject
	if book.ValidateID(id) != nil {
		return nil, book.ErrBookNotFound
	}

	if s.cache != nil {
		var cached book.Book
		found, err := s.cache.Get(ctx, cacheKey(id), &cached)
		if err != nil {
			log.Warn().Err(err).Str("book_id", id).Msg("Cache read failed")
		}
		if found {
			return &cached, nil
		}
	}

	gen := s.generation(ctx, id)
	b, err := s.repo.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(id), b, s.cacheTTL); err != nil {
			log.Warn().Err(err).Str("book_id", id).Msg("Cache write failed")
		} else if s.generation(ctx, id) != gen {
			// A write landed between Fetch and Set; drop what may be stale.
			s.dropCached(ctx, id)
		}
	}
	return b, nil
}

func (s *BookService) Delete(ctx context.Context, id string) error {
	if book.ValidateID(id) != nil {
		log.Debug().Str("book_id", id).Msg("Delete of malformed id ignored")
		return nil
	}

	removed, err := s.repo.Remove(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, id)

	if !removed {
		log.Debug().Str("book_id", id).Msg("Delete of missing book")
	}
	return nil
}

// invalidate bumps the id's generation before dropping the cached copy, so a
// concurrent Get that fetched the old book notices and does not keep it.
func (s *BookService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, generationKey(id), uuid.NewString(), s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("book_id", id).Msg("Cache generation bump failed")
	}
	s.dropCached(ctx, id)
}

func (s *BookService) dropCached(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		log.Warn().Err(err).Str("book_id", id).Msg("Cache invalidation failed")
	}
}

func (s *BookService) generation(ctx context.Context, id string) string {
	if s.cache == nil {
		return ""
	}
	var gen string
	if _, err := s.cache.Get(ctx, generationKey(id), &gen); err != nil {
		log.Warn().Err(err).Str("book_id", id).Msg("Cache generation read failed")
	}
	return gen
}

func cacheKey(id string) string {
	return cacheKeyPrefix + id
}

// Ids never contain ':', so this cannot collide with a book key.
func generationKey(id string) string {
	return cacheKeyPrefix + "gen:" + id
}

// ========================= QUERIES =====================

func (s *BookService) List(ctx context.Context) ([]book.Book, error) {
	return s.repo.Search(ctx, nil)
}

func (s *BookService) ListByAuthor(ctx context.Context, author string) ([]book.Book, error) {
	return s.repo.Search(ctx, book.Where("author").Eq(author))
}

func (s *BookService) ListByYearRange(ctx context.Context, from, to int) ([]book.Book, error) {
	if from > to {
		return nil, book.NewValidationError("to", "must not be less than from")
	}
	return s.repo.Search(ctx, book.Where("year").Between(from, to))
}

func (s *BookService) SearchSummary(ctx context.Context, text string) ([]book.Book, error) {
	if err := book.ValidateSearchText(text); err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, book.Where("summary").Matches(text))
}

// ========================= EXPORT =====================

func (s *BookService) Export(ctx context.Context) (*excelize.File, error) {
	books, err := s.repo.Search(ctx, nil)
	if err != nil {
		return nil, err
	}

	f, err := buildBooksExcelFile(books)
	if err != nil {
		return nil, fmt.Errorf("failed to build excel file: %w", err)
	}
	return f, nil
}

const exportSheet = "Books"

func buildBooksExcelFile(books []book.Book) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	headers := []string{"ID", "Title", "Author", "Publisher", "Year", "Pages", "Summary"}
	for colIdx, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle)
	}

	for i, b := range books {
		row := []interface{}{
			b.ID,
			stringCell(b.Title),
			stringCell(b.Author),
			stringCell(b.Publisher),
			intCell(b.Year),
			intCell(b.Pages),
			stringCell(b.Summary),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// Absent attributes become empty cells
func stringCell(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func intCell(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}

// ========================= HEALTH =====================

func (s *BookService) Health(ctx context.Context) book.HealthStatus {
	status := book.HealthStatus{Status: "ok", Store: "ok", Cache: "disabled"}

	if err := s.repo.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Store health check failed")
		status.Store = "unavailable"
		status.Status = "degraded"
	}

	if s.cache != nil {
		status.Cache = "ok"
		if err := s.cache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Cache health check failed")
			status.Cache = "unavailable"
			status.Status = "degraded"
		}
	}
	return status
}
