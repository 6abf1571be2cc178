package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner được implement bởi *pgxpool.Pool và *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxFunc là function được execute trong transaction.
type TxFunc func(pgx.Tx) error

// WithTransaction wraps fn trong một transaction.
// Auto commit nếu fn return nil, auto rollback nếu có error hoặc panic.
func WithTransaction(ctx context.Context, db Beginner, fn TxFunc) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			// Rollback sau khi commit fail sẽ là no-op
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
