package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"book-catalog/internal/domains/book"
)

// memoryRepository keeps books in process memory. Data is lost on restart.
// Safe for concurrent use.
type memoryRepository struct {
	mu    sync.RWMutex
	books map[string]book.Book
}

// NewMemoryRepository - Constructor
func NewMemoryRepository() book.Repository {
	return &memoryRepository{books: make(map[string]book.Book)}
}

// DefineAndIndex is a no-op: every search is a full scan.
func (r *memoryRepository) DefineAndIndex(ctx context.Context, spec book.IndexSpec) error {
	return ctx.Err()
}

func (r *memoryRepository) DropIndex(ctx context.Context, spec book.IndexSpec) error {
	return ctx.Err()
}

func (r *memoryRepository) Save(ctx context.Context, b book.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[b.ID] = b.Clone()
	return nil
}

func (r *memoryRepository) Fetch(ctx context.Context, id string) (*book.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[id]
	if !ok {
		return nil, book.ErrBookNotFound
	}
	found := b.Clone()
	return &found, nil
}

func (r *memoryRepository) Remove(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return false, nil
	}
	delete(r.books, id)
	return true, nil
}

func (r *memoryRepository) Search(ctx context.Context, f *book.Filter) ([]book.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f != nil {
		if err := book.BookIndex.Check(*f); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]book.Book, 0, len(r.books))
	for _, b := range r.books {
		if f == nil || matches(&b, f) {
			result = append(result, b.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *memoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func matches(b *book.Book, f *book.Filter) bool {
	value, ok := b.Values()[f.Field]
	if !ok {
		return false
	}
	switch f.Op {
	case book.OpEq:
		s, _ := value.(string)
		return s != "" && s == f.Value
	case book.OpBetween:
		n, _ := value.(int)
		return n >= f.Min && n <= f.Max
	case book.OpMatch:
		s, _ := value.(string)
		return containsAllTerms(s, f.Value)
	}
	return false
}

// containsAllTerms reports whether every word of query occurs as a word of text,
// ignoring case.
func containsAllTerms(text, query string) bool {
	words := make(map[string]struct{})
	for _, w := range tokenize(text) {
		words[w] = struct{}{}
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return false
	}
	for _, t := range terms {
		if _, ok := words[t]; !ok {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
