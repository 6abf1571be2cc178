package database

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSN(t *testing.T) {
	dsn := sqliteDSN("/var/lib/books/books.db")
	assert.True(t, strings.HasPrefix(dsn, "file:/var/lib/books/books.db?"))
	assert.Contains(t, dsn, "_pragma=busy_timeout%285000%29")
	assert.Contains(t, dsn, "_txlock=immediate")
}

func TestOpenSQLite_PragmasOnEveryConnection(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Hold several connections open at once so the pool cannot reuse one
	db.SetMaxIdleConns(4)
	var wg sync.WaitGroup
	timeouts := make([]int, 4)
	modes := make([]string, 4)
	errs := make([]error, 4)
	start := make(chan struct{})
	for i := range timeouts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tx, err := db.Begin()
			if err != nil {
				errs[i] = err
				return
			}
			defer tx.Rollback()
			if errs[i] = tx.QueryRow("PRAGMA busy_timeout").Scan(&timeouts[i]); errs[i] != nil {
				return
			}
			errs[i] = tx.QueryRow("PRAGMA journal_mode").Scan(&modes[i])
		}(i)
	}
	close(start)
	wg.Wait()

	for i := range timeouts {
		require.NoError(t, errs[i])
		assert.Equal(t, 5000, timeouts[i])
		assert.Equal(t, "wal", modes[i])
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
