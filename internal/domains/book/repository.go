package book

import (
	"context"
)

// Operator is the single-field predicate a Filter applies.
type Operator string

const (
	OpEq      Operator = "eq"      // exact, case-sensitive match on a string field
	OpBetween Operator = "between" // inclusive range on a number field
	OpMatch   Operator = "match"   // all terms present in a text field, case-insensitive
)

// Filter is a single-field search predicate. A nil *Filter selects every book.
type Filter struct {
	Field string
	Op    Operator
	Value string // OpEq, OpMatch
	Min   int    // OpBetween
	Max   int    // OpBetween
}

// Where returns an equality filter on a string field.
func Where(field string) FilterBuilder {
	return FilterBuilder{field: field}
}

// FilterBuilder reads like the query it builds: Where("author").Eq("Herbert").
type FilterBuilder struct {
	field string
}

func (fb FilterBuilder) Eq(value string) *Filter {
	return &Filter{Field: fb.field, Op: OpEq, Value: value}
}

func (fb FilterBuilder) Between(min, max int) *Filter {
	return &Filter{Field: fb.field, Op: OpBetween, Min: min, Max: max}
}

func (fb FilterBuilder) Matches(text string) *Filter {
	return &Filter{Field: fb.field, Op: OpMatch, Value: text}
}

// Repository defines data access for books over an indexed document store.
// Implementations wrap connectivity failures with ErrStoreUnavailable.
type Repository interface {
	// DefineAndIndex creates the backing index for spec. Safe to call on every start:
	// an index matching spec is left alone, a stale one is recreated.
	// Errors: ErrIndexCreation
	DefineAndIndex(ctx context.Context, spec IndexSpec) error

	// DropIndex removes the index (never the stored books).
	DropIndex(ctx context.Context, spec IndexSpec) error

	// Save creates or fully replaces the book stored at b.ID.
	Save(ctx context.Context, b Book) error

	// Fetch returns the book stored at id.
	// Errors: ErrBookNotFound
	Fetch(ctx context.Context, id string) (*Book, error)

	// Remove deletes the book at id and reports whether it existed.
	Remove(ctx context.Context, id string) (bool, error)

	// Search returns every book matching f, or all books when f is nil.
	// The result is never nil.
	Search(ctx context.Context, f *Filter) ([]Book, error)

	// Ping checks store connectivity.
	Ping(ctx context.Context) error
}
