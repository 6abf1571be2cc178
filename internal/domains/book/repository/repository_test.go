package repository_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-catalog/internal/domains/book"
	"book-catalog/internal/domains/book/repository"
	"book-catalog/internal/infrastructure/database"
)

func dune() book.Book {
	return book.Book{
		ID:        "b-dune",
		Title:     book.StringPtr("Dune"),
		Author:    book.StringPtr("Frank Herbert"),
		Summary:   book.StringPtr("A noble family fights over a desert planet that produces spice."),
		Publisher: book.StringPtr("Chilton"),
		Year:      book.IntPtr(1965),
		Pages:     book.IntPtr(412),
	}
}

func messiah() book.Book {
	return book.Book{
		ID:      "b-messiah",
		Title:   book.StringPtr("Dune Messiah"),
		Author:  book.StringPtr("Frank Herbert"),
		Summary: book.StringPtr("Twelve years later the emperor rules from the desert."),
		Year:    book.IntPtr(1969),
	}
}

func earthsea() book.Book {
	return book.Book{
		ID:      "b-earthsea",
		Title:   book.StringPtr("A Wizard of Earthsea"),
		Author:  book.StringPtr("Ursula K. Le Guin"),
		Summary: book.StringPtr("A young wizard unleashes a shadow on the archipelago."),
		Year:    book.IntPtr(1968),
		Pages:   book.IntPtr(183),
	}
}

func ids(books []book.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

// runRepositoryTests runs a common suite against any Repository. repo must be empty.
func runRepositoryTests(t *testing.T, repo book.Repository, spec book.IndexSpec) {
	t.Helper()
	ctx := context.Background()

	t.Run("DefineAndIndex is idempotent", func(t *testing.T) {
		require.NoError(t, repo.DefineAndIndex(ctx, spec))
		require.NoError(t, repo.DefineAndIndex(ctx, spec))
	})

	t.Run("Search on empty store", func(t *testing.T) {
		books, err := repo.Search(ctx, nil)
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})

	t.Run("Fetch missing", func(t *testing.T) {
		_, err := repo.Fetch(ctx, "missing")
		assert.ErrorIs(t, err, book.ErrBookNotFound)
	})

	t.Run("Save and Fetch", func(t *testing.T) {
		for _, b := range []book.Book{dune(), messiah(), earthsea()} {
			require.NoError(t, repo.Save(ctx, b))
		}

		got, err := repo.Fetch(ctx, "b-dune")
		require.NoError(t, err)
		assert.Equal(t, dune(), *got)

		// Absent attributes stay absent
		got, err = repo.Fetch(ctx, "b-messiah")
		require.NoError(t, err)
		assert.Equal(t, messiah(), *got)
		assert.Nil(t, got.Publisher)
		assert.Nil(t, got.Pages)
	})

	t.Run("Save without attributes", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, book.Book{ID: "b-empty"}))

		got, err := repo.Fetch(ctx, "b-empty")
		require.NoError(t, err)
		assert.Equal(t, book.Book{ID: "b-empty"}, *got)

		removed, err := repo.Remove(ctx, "b-empty")
		require.NoError(t, err)
		assert.True(t, removed)
	})

	t.Run("Save replaces every field", func(t *testing.T) {
		replacement := book.Book{ID: "b-dune", Title: book.StringPtr("Dune (revised)")}
		require.NoError(t, repo.Save(ctx, replacement))

		got, err := repo.Fetch(ctx, "b-dune")
		require.NoError(t, err)
		assert.Equal(t, replacement, *got)

		byAuthor, err := repo.Search(ctx, book.Where("author").Eq("Frank Herbert"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-messiah"}, ids(byAuthor))

		require.NoError(t, repo.Save(ctx, dune()))
	})

	t.Run("Search all is ordered by id", func(t *testing.T) {
		books, err := repo.Search(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"b-dune", "b-earthsea", "b-messiah"}, ids(books))
	})

	t.Run("Search Eq is exact and case-sensitive", func(t *testing.T) {
		books, err := repo.Search(ctx, book.Where("author").Eq("Frank Herbert"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-dune", "b-messiah"}, ids(books))
		assert.Equal(t, dune(), books[0])

		books, err = repo.Search(ctx, book.Where("author").Eq("frank herbert"))
		require.NoError(t, err)
		assert.Empty(t, books)

		books, err = repo.Search(ctx, book.Where("author").Eq("Frank"))
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("Search Eq with punctuation", func(t *testing.T) {
		books, err := repo.Search(ctx, book.Where("author").Eq("Ursula K. Le Guin"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-earthsea"}, ids(books))
	})

	t.Run("Search Eq compares whole values", func(t *testing.T) {
		extra := []book.Book{
			{ID: "x-duo", Author: book.StringPtr("Smith|Jones")},
			{ID: "x-smith", Author: book.StringPtr("Smith")},
			{ID: "x-padded", Author: book.StringPtr("Frank Herbert ")},
		}
		for _, b := range extra {
			require.NoError(t, repo.Save(ctx, b))
		}
		defer func() {
			for _, b := range extra {
				_, err := repo.Remove(ctx, b.ID)
				require.NoError(t, err)
			}
		}()

		tests := []struct {
			author string
			want   []string
		}{
			{"Smith", []string{"x-smith"}},
			{"Smith|Jones", []string{"x-duo"}},
			{"Jones", nil},
			{"Frank Herbert", []string{"b-dune", "b-messiah"}},
			{"Frank Herbert ", []string{"x-padded"}},
		}
		for _, tt := range tests {
			books, err := repo.Search(ctx, book.Where("author").Eq(tt.author))
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, books, "author %q", tt.author)
				continue
			}
			assert.Equal(t, tt.want, ids(books), "author %q", tt.author)
		}
	})

	t.Run("Search Eq on an empty value matches nothing", func(t *testing.T) {
		books, err := repo.Search(ctx, book.Where("publisher").Eq(""))
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})

	t.Run("Search Between is inclusive", func(t *testing.T) {
		books, err := repo.Search(ctx, book.Where("year").Between(1965, 1968))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-dune", "b-earthsea"}, ids(books))

		books, err = repo.Search(ctx, book.Where("pages").Between(0, 200))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-earthsea"}, ids(books))

		// Bounds wider than any stored column still match
		books, err = repo.Search(ctx, book.Where("year").Between(-1<<40, 1<<40))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-dune", "b-earthsea", "b-messiah"}, ids(books))
	})

	t.Run("Search Matches full text", func(t *testing.T) {
		books, err := repo.Search(ctx, book.Where("summary").Matches("desert"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-dune", "b-messiah"}, ids(books))

		books, err = repo.Search(ctx, book.Where("summary").Matches("DESERT spice"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-dune"}, ids(books))

		books, err = repo.Search(ctx, book.Where("summary").Matches("submarine"))
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)

		// No term is dropped as a stopword and none is stemmed
		books, err = repo.Search(ctx, book.Where("summary").Matches("the planet"))
		require.NoError(t, err)
		assert.Empty(t, books)

		books, err = repo.Search(ctx, book.Where("summary").Matches("planets"))
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("Search rejects undeclared or mistyped fields", func(t *testing.T) {
		_, err := repo.Search(ctx, book.Where("isbn").Eq("123"))
		assert.ErrorIs(t, err, book.ErrUnknownField)

		_, err = repo.Search(ctx, book.Where("year").Eq("1965"))
		assert.ErrorIs(t, err, book.ErrUnknownField)

		_, err = repo.Search(ctx, book.Where("author").Matches("Herbert"))
		assert.ErrorIs(t, err, book.ErrUnknownField)
	})

	t.Run("Remove", func(t *testing.T) {
		removed, err := repo.Remove(ctx, "b-messiah")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repo.Remove(ctx, "b-messiah")
		require.NoError(t, err)
		assert.False(t, removed)

		_, err = repo.Fetch(ctx, "b-messiah")
		assert.ErrorIs(t, err, book.ErrBookNotFound)

		books, err := repo.Search(ctx, book.Where("author").Eq("Frank Herbert"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-dune"}, ids(books))
	})

	t.Run("Books survive an index rebuild", func(t *testing.T) {
		require.NoError(t, repo.DropIndex(ctx, spec))
		require.NoError(t, repo.DefineAndIndex(ctx, spec))

		books, err := repo.Search(ctx, book.Where("year").Between(1900, 2000))
		require.NoError(t, err)
		assert.Equal(t, []string{"b-dune", "b-earthsea"}, ids(books))
	})

	t.Run("Concurrent saves", func(t *testing.T) {
		const writers, perWriter = 16, 50

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			failed []error
		)
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					b := book.Book{
						ID:    fmt.Sprintf("c-%02d-%02d", w, i),
						Title: book.StringPtr(fmt.Sprintf("Volume %d", i)),
						Year:  book.IntPtr(2000 + i),
					}
					if err := repo.Save(ctx, b); err != nil {
						mu.Lock()
						failed = append(failed, err)
						mu.Unlock()
					}
				}
			}(w)
		}
		wg.Wait()
		require.Empty(t, failed)

		books, err := repo.Search(ctx, book.Where("year").Between(2000, 2000+perWriter))
		require.NoError(t, err)
		assert.Len(t, books, writers*perWriter)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}

// testSpec gives each run its own key prefix and table so shared servers stay clean.
func testSpec() book.IndexSpec {
	spec := book.BookIndex
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	spec.Name = "booktest" + suffix
	spec.Collection = "books_test_" + suffix
	return spec
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryTests(t, repository.NewMemoryRepository(), book.BookIndex)
}

func TestSQLiteRepository(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runRepositoryTests(t, repository.NewSQLiteRepository(db, book.BookIndex), book.BookIndex)
}

func TestSQLiteRepository_AddsMissingColumns(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE books (id TEXT PRIMARY KEY, title TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO books (id, title) VALUES ('old', 'Legacy')`)
	require.NoError(t, err)

	repo := repository.NewSQLiteRepository(db, book.BookIndex)
	require.NoError(t, repo.DefineAndIndex(ctx, book.BookIndex))

	got, err := repo.Fetch(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, book.Book{ID: "old", Title: book.StringPtr("Legacy")}, *got)
}

func TestRedisRepository(t *testing.T) {
	addr := os.Getenv("BOOKS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOOKS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: addr, Protocol: 2})
	t.Cleanup(func() { client.Close() })

	spec := testSpec()
	t.Cleanup(func() {
		client.FTDropIndexWithArgs(ctx, spec.IndexName(), &redis.FTDropIndexOptions{DeleteDocs: true})
		client.Del(ctx, "index-hash:"+spec.IndexName())
		keys, _ := client.Keys(ctx, spec.KeyPrefix()+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})

	runRepositoryTests(t, repository.NewRedisRepository(client, spec), spec)
}

func TestRedisRepository_ConcurrentDefine(t *testing.T) {
	addr := os.Getenv("BOOKS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOOKS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: addr, Protocol: 2})
	t.Cleanup(func() { client.Close() })

	spec := testSpec()
	t.Cleanup(func() {
		client.FTDropIndex(ctx, spec.IndexName())
		client.Del(ctx, "index-hash:"+spec.IndexName(), "index-lock:"+spec.IndexName())
	})

	// API, worker and scheduler starting together
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repository.NewRedisRepository(client, spec).DefineAndIndex(ctx, spec)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("BOOKS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BOOKS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	spec := testSpec()
	t.Cleanup(func() {
		pool.Exec(ctx, `DROP TABLE IF EXISTS "`+spec.Collection+`"`)
	})

	runRepositoryTests(t, repository.NewPostgresRepository(pool, spec), spec)
}

func TestNew(t *testing.T) {
	repo, err := repository.New(repository.DriverMemory, repository.Connections{}, book.BookIndex)
	require.NoError(t, err)
	assert.NotNil(t, repo)

	_, err = repository.New(repository.DriverRedis, repository.Connections{}, book.BookIndex)
	assert.Error(t, err)

	_, err = repository.New(repository.DriverPostgres, repository.Connections{}, book.BookIndex)
	assert.Error(t, err)

	_, err = repository.New("mongo", repository.Connections{}, book.BookIndex)
	assert.ErrorContains(t, err, "unknown store driver")
}
