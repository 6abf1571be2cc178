package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"book-catalog/internal/domains/book"
)

// sqliteRepository stores books in one SQLite table. Text fields have no native
// full-text index: matching prefilters with LIKE and confirms word matches in Go.
type sqliteRepository struct {
	db   *sql.DB
	spec book.IndexSpec
}

// NewSQLiteRepository - Constructor
func NewSQLiteRepository(db *sql.DB, spec book.IndexSpec) book.Repository {
	return &sqliteRepository{db: db, spec: spec}
}

// ========================= INDEX =====================

// DefineAndIndex creates the table, adds columns missing from an older layout and
// creates one index per string or number field.
func (r *sqliteRepository) DefineAndIndex(ctx context.Context, spec book.IndexSpec) error {
	if err := r.migrate(ctx, spec); err != nil {
		return fmt.Errorf("%w: %w", book.ErrIndexCreation, err)
	}
	log.Info().Str("table", spec.Collection).Msg("SQLite table and indexes ready")
	return nil
}

func (r *sqliteRepository) migrate(ctx context.Context, spec book.IndexSpec) error {
	table := pq.QuoteIdentifier(spec.Collection)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY)`, table)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	existing, err := sqliteColumns(ctx, tx, spec.Collection)
	if err != nil {
		return err
	}

	for _, f := range spec.Fields {
		if _, ok := existing[f.Name]; ok {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, pq.QuoteIdentifier(f.Name), columnType(f.Type))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", f.Name, err)
		}
	}

	for _, f := range spec.Fields {
		if f.Type == book.FieldText {
			continue
		}
		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s)`,
			pq.QuoteIdentifier(sqlIndexName(spec, f)), table, pq.QuoteIdentifier(f.Name))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index on %s: %w", f.Name, err)
		}
	}

	return tx.Commit()
}

func sqliteColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("table info: %w", err)
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}

func (r *sqliteRepository) DropIndex(ctx context.Context, spec book.IndexSpec) error {
	for _, f := range spec.Fields {
		stmt := fmt.Sprintf(`DROP INDEX IF EXISTS %s`, pq.QuoteIdentifier(sqlIndexName(spec, f)))
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return book.Unavailable("drop index", err)
		}
	}
	return nil
}

// ========================= CRUD =====================

func (r *sqliteRepository) Save(ctx context.Context, b book.Book) error {
	cols := r.spec.FieldNames()
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	updates := make([]string, len(cols))
	args := []interface{}{b.ID}

	targets := b.Targets()
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = "?"
		updates[i] = fmt.Sprintf("%s = excluded.%s", quoted[i], quoted[i])
		args = append(args, targetValue(targets[c]))
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, %s) VALUES (?, %s) ON CONFLICT(id) DO UPDATE SET %s`,
		pq.QuoteIdentifier(r.spec.Collection),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return book.Unavailable("save book", err)
	}
	return nil
}

func (r *sqliteRepository) Fetch(ctx context.Context, id string) (*book.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columnList(r.spec), pq.QuoteIdentifier(r.spec.Collection))

	var b book.Book
	if err := r.db.QueryRowContext(ctx, query, id).Scan(scanTargets(r.spec, &b)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, book.ErrBookNotFound
		}
		return nil, book.Unavailable("fetch book", err)
	}
	return &b, nil
}

func (r *sqliteRepository) Remove(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, pq.QuoteIdentifier(r.spec.Collection))
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, book.Unavailable("remove book", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, book.Unavailable("remove book", err)
	}
	return n > 0, nil
}

// ========================= SEARCH =====================

func (r *sqliteRepository) Search(ctx context.Context, f *book.Filter) ([]book.Book, error) {
	books := make([]book.Book, 0)

	where, args, ok, err := r.buildWhereClause(f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return books, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY id`,
		columnList(r.spec), pq.QuoteIdentifier(r.spec.Collection), where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, book.Unavailable("search books", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b book.Book
		if err := rows.Scan(scanTargets(r.spec, &b)...); err != nil {
			return nil, book.Unavailable("scan book", err)
		}
		// LIKE matched substrings; keep whole-word matches only
		if f != nil && f.Op == book.OpMatch && !matches(&b, f) {
			continue
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, book.Unavailable("iterate books", err)
	}
	return books, nil
}

// buildWhereClause returns ok=false when f can match nothing.
func (r *sqliteRepository) buildWhereClause(f *book.Filter) (string, []interface{}, bool, error) {
	if f == nil {
		return "", nil, true, nil
	}
	if err := r.spec.Check(*f); err != nil {
		return "", nil, false, err
	}

	col := pq.QuoteIdentifier(f.Field)
	switch f.Op {
	case book.OpEq:
		return fmt.Sprintf("WHERE %s = ? AND %s <> ''", col, col), []interface{}{f.Value}, true, nil
	case book.OpBetween:
		return fmt.Sprintf("WHERE %s BETWEEN ? AND ?", col), []interface{}{f.Min, f.Max}, true, nil
	default: // book.OpMatch
		terms := tokenize(f.Value)
		if len(terms) == 0 {
			return "", nil, false, nil
		}
		conds := make([]string, len(terms))
		args := make([]interface{}, len(terms))
		for i, t := range terms {
			conds[i] = fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, col)
			args[i] = "%" + escapeLike(t) + "%"
		}
		return "WHERE " + strings.Join(conds, " AND "), args, true, nil
	}
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return book.Unavailable("ping sqlite", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
