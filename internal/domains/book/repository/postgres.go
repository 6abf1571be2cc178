package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"book-catalog/internal/domains/book"
	"book-catalog/pkg/database"
)

// postgresRepository - Raw SQL with pgxpool. One row per book, one column per
// declared field; absent attributes are NULL.
type postgresRepository struct {
	pool *pgxpool.Pool
	spec book.IndexSpec
}

// NewPostgresRepository - Constructor
func NewPostgresRepository(pool *pgxpool.Pool, spec book.IndexSpec) book.Repository {
	return &postgresRepository{pool: pool, spec: spec}
}

// ========================= INDEX =====================

// DefineAndIndex creates the table, adds missing columns and creates one index per
// declared field, all in one transaction. Every statement is idempotent.
func (r *postgresRepository) DefineAndIndex(ctx context.Context, spec book.IndexSpec) error {
	table := pq.QuoteIdentifier(spec.Collection)

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY)`, table),
	}
	for _, f := range spec.Fields {
		stmts = append(stmts, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`,
			table, pq.QuoteIdentifier(f.Name), columnType(f.Type)))
	}
	for _, f := range spec.Fields {
		stmts = append(stmts, pgCreateIndex(spec, f))
	}

	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("exec %q: %w", stmt, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", book.ErrIndexCreation, err)
	}

	log.Info().
		Str("table", spec.Collection).
		Int("fields", len(spec.Fields)).
		Msg("Postgres table and indexes ready")
	return nil
}

func (r *postgresRepository) DropIndex(ctx context.Context, spec book.IndexSpec) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		for _, f := range spec.Fields {
			stmt := fmt.Sprintf(`DROP INDEX IF EXISTS %s`, pq.QuoteIdentifier(sqlIndexName(spec, f)))
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return book.Unavailable("drop index", err)
			}
		}
		return nil
	})
}

func columnType(t book.FieldType) string {
	if t == book.FieldNumber {
		return "INTEGER"
	}
	return "TEXT"
}

func pgCreateIndex(spec book.IndexSpec, f book.FieldSpec) string {
	name := pq.QuoteIdentifier(sqlIndexName(spec, f))
	table := pq.QuoteIdentifier(spec.Collection)
	col := pq.QuoteIdentifier(f.Name)
	if f.Type == book.FieldText {
		return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (to_tsvector('simple', coalesce(%s, '')))`,
			name, table, col)
	}
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s)`, name, table, col)
}

func sqlIndexName(spec book.IndexSpec, f book.FieldSpec) string {
	return fmt.Sprintf("%s_%s_idx", spec.Collection, f.Name)
}

// ========================= CRUD =====================

func (r *postgresRepository) Save(ctx context.Context, b book.Book) error {
	cols := r.spec.FieldNames()
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	updates := make([]string, len(cols))
	args := []interface{}{b.ID}

	targets := b.Targets()
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i])
		args = append(args, targetValue(targets[c]))
	}

	// Upsert overwrites every column, so omitted attributes become NULL
	query := fmt.Sprintf(`
		INSERT INTO %s (id, %s) VALUES ($1, %s)
		ON CONFLICT (id) DO UPDATE SET %s`,
		pq.QuoteIdentifier(r.spec.Collection),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return book.Unavailable("save book", err)
	}
	return nil
}

func (r *postgresRepository) Fetch(ctx context.Context, id string) (*book.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columnList(r.spec), pq.QuoteIdentifier(r.spec.Collection))

	var b book.Book
	if err := r.pool.QueryRow(ctx, query, id).Scan(scanTargets(r.spec, &b)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrBookNotFound
		}
		return nil, book.Unavailable("fetch book", err)
	}
	return &b, nil
}

func (r *postgresRepository) Remove(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, pq.QuoteIdentifier(r.spec.Collection))
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, book.Unavailable("remove book", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ========================= SEARCH =====================

func (r *postgresRepository) Search(ctx context.Context, f *book.Filter) ([]book.Book, error) {
	where, args, err := r.buildWhereClause(f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY id`,
		columnList(r.spec), pq.QuoteIdentifier(r.spec.Collection), where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, book.Unavailable("search books", err)
	}
	defer rows.Close()

	books := make([]book.Book, 0)
	for rows.Next() {
		var b book.Book
		if err := rows.Scan(scanTargets(r.spec, &b)...); err != nil {
			return nil, book.Unavailable("scan book", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, book.Unavailable("iterate books", err)
	}
	return books, nil
}

func (r *postgresRepository) buildWhereClause(f *book.Filter) (string, []interface{}, error) {
	if f == nil {
		return "", nil, nil
	}
	if err := r.spec.Check(*f); err != nil {
		return "", nil, err
	}

	col := pq.QuoteIdentifier(f.Field)
	switch f.Op {
	case book.OpEq:
		// Empty strings never match, as with Redis tags
		return fmt.Sprintf("WHERE %s = $1 AND %s <> ''", col, col), []interface{}{f.Value}, nil
	case book.OpBetween:
		return fmt.Sprintf("WHERE %s BETWEEN $1 AND $2", col),
			[]interface{}{clampInt32(f.Min), clampInt32(f.Max)}, nil
	default: // book.OpMatch
		return fmt.Sprintf("WHERE to_tsvector('simple', coalesce(%s, '')) @@ plainto_tsquery('simple', $1)", col),
			[]interface{}{f.Value}, nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return book.Unavailable("ping postgres", err)
	}
	return nil
}

// columnList is the SELECT list matching scanTargets.
func columnList(spec book.IndexSpec) string {
	cols := []string{"id"}
	for _, c := range spec.FieldNames() {
		cols = append(cols, pq.QuoteIdentifier(c))
	}
	return strings.Join(cols, ", ")
}

// scanTargets lines Book's attribute slots up with columnList's column order.
func scanTargets(spec book.IndexSpec, b *book.Book) []interface{} {
	targets := b.Targets()
	dest := []interface{}{&b.ID}
	for _, c := range spec.FieldNames() {
		dest = append(dest, targets[c])
	}
	return dest
}

// targetValue dereferences an attribute slot into a driver argument (nil -> NULL).
func targetValue(target interface{}) interface{} {
	switch p := target.(type) {
	case **string:
		if *p == nil {
			return nil
		}
		return **p
	case **int:
		if *p == nil {
			return nil
		}
		return **p
	}
	return nil
}

// clampInt32 keeps range bounds inside INTEGER so wide bounds still match every row
// instead of failing to encode.
func clampInt32(n int) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	}
	return int32(n)
}
