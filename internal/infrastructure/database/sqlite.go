package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied by the driver to every pooled connection.
// busy_timeout makes concurrent writers wait for the lock instead of failing.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// OpenSQLite opens (creating if needed) the database file at path.
// Tables are created by the book store itself.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Ping opens the first connection, so a bad pragma fails here
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite opened")
	return db, nil
}

// sqliteDSN puts the pragmas in the DSN: a PRAGMA sent with db.Exec would only
// reach one connection of the pool. _txlock=immediate takes the write lock at
// BEGIN so a transaction never has to upgrade a read lock.
func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}
