package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"book-catalog/internal/domains/book"
)

// searchPageSize bounds one FT.SEARCH reply; Search pages until the total is read.
const searchPageSize = 500

// schemaVersion is mixed into the stored index hash. Bump it when fieldSchemas or the
// FT.CREATE options change so running deployments recreate their index.
const schemaVersion = "2"

// tagSeparator splits TAG values at index time. Eq queries match one segment and
// compare whole values afterwards.
const tagSeparator = "|"

const (
	indexLockTTL   = 10 * time.Second
	indexLockWait  = 15 * time.Second
	indexLockRetry = 100 * time.Millisecond
)

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// redisRepository stores each book as a HASH at "<name>:<id>" and queries it through
// a RediSearch index over that prefix.
type redisRepository struct {
	client   *redis.Client
	spec     book.IndexSpec
	pageSize int
}

// NewRedisRepository - Constructor. The client must speak RESP2 for FT.SEARCH
// replies to be parsed.
func NewRedisRepository(client *redis.Client, spec book.IndexSpec) book.Repository {
	return &redisRepository{
		client:   client,
		spec:     spec,
		pageSize: searchPageSize,
	}
}

// ========================= INDEX =====================

// DefineAndIndex runs under a Redis lock since the API and the worker
// may call it at once.
func (r *redisRepository) DefineAndIndex(ctx context.Context, spec book.IndexSpec) error {
	unlock, err := r.lockIndex(ctx, spec)
	if err != nil {
		return fmt.Errorf("%w: %w", book.ErrIndexCreation, err)
	}
	defer unlock()

	hashKey := indexHashKey(spec)
	want := spec.Hash() + ":" + schemaVersion

	current, err := r.client.Get(ctx, hashKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %w", book.ErrIndexCreation, book.Unavailable("read index hash", err))
	}

	if current == want {
		exists, err := r.indexExists(ctx, spec.IndexName())
		if err != nil {
			return fmt.Errorf("%w: %w", book.ErrIndexCreation, err)
		}
		if exists {
			log.Debug().Str("index", spec.IndexName()).Msg("Search index is up to date")
			return nil
		}
	}

	// Stale or missing: recreate from scratch
	if err := r.DropIndex(ctx, spec); err != nil {
		return fmt.Errorf("%w: %w", book.ErrIndexCreation, err)
	}

	// STOPWORDS 0: every query term must match, none is dropped
	opts := &redis.FTCreateOptions{
		OnHash:    true,
		Prefix:    []interface{}{spec.KeyPrefix()},
		StopWords: []interface{}{},
	}
	if err := r.client.FTCreate(ctx, spec.IndexName(), opts, fieldSchemas(spec)...).Err(); err != nil {
		return fmt.Errorf("%w: FT.CREATE %s: %w", book.ErrIndexCreation, spec.IndexName(), err)
	}

	if err := r.client.Set(ctx, hashKey, want, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", book.ErrIndexCreation, book.Unavailable("write index hash", err))
	}

	log.Info().
		Str("index", spec.IndexName()).
		Str("prefix", spec.KeyPrefix()).
		Int("fields", len(spec.Fields)).
		Msg("Search index created")
	return nil
}

func (r *redisRepository) DropIndex(ctx context.Context, spec book.IndexSpec) error {
	// FT.DROPINDEX without DD keeps the documents
	err := r.client.FTDropIndex(ctx, spec.IndexName()).Err()
	if err != nil && !isUnknownIndex(err) {
		return book.Unavailable("drop index", err)
	}
	if err := r.client.Del(ctx, indexHashKey(spec)).Err(); err != nil {
		return book.Unavailable("delete index hash", err)
	}
	return nil
}

// lockIndex takes the per-index SET NX lock, waiting up to indexLockWait for
// another process to finish.
func (r *redisRepository) lockIndex(ctx context.Context, spec book.IndexSpec) (func(), error) {
	key := indexLockKey(spec)
	token := uuid.NewString()
	deadline := time.Now().Add(indexLockWait)

	for {
		ok, err := r.client.SetNX(ctx, key, token, indexLockTTL).Result()
		if err != nil {
			return nil, book.Unavailable("lock index", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("index %s is locked by another process", spec.IndexName())
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(indexLockRetry):
		}
	}

	return func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(unlockCtx, r.client, []string{key}, token).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to release index lock")
		}
	}, nil
}

func (r *redisRepository) indexExists(ctx context.Context, name string) (bool, error) {
	names, err := r.client.FT_List(ctx).Result()
	if err != nil {
		return false, book.Unavailable("list indexes", err)
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func fieldSchemas(spec book.IndexSpec) []*redis.FieldSchema {
	schemas := make([]*redis.FieldSchema, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		fs := &redis.FieldSchema{FieldName: f.Name}
		switch f.Type {
		case book.FieldString:
			fs.FieldType = redis.SearchFieldTypeTag
			fs.Separator = tagSeparator
			fs.CaseSensitive = true
		case book.FieldText:
			fs.FieldType = redis.SearchFieldTypeText
			fs.NoStem = true
		case book.FieldNumber:
			fs.FieldType = redis.SearchFieldTypeNumeric
		}
		schemas = append(schemas, fs)
	}
	return schemas
}

func indexHashKey(spec book.IndexSpec) string {
	return "index-hash:" + spec.IndexName()
}

func indexLockKey(spec book.IndexSpec) string {
	return "index-lock:" + spec.IndexName()
}

func isUnknownIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index")
}

// ========================= CRUD =====================

func (r *redisRepository) Save(ctx context.Context, b book.Book) error {
	key := r.key(b.ID)
	values := encodeHash(b)

	// DEL + HSET in one MULTI: a PUT never merges with the previous fields
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		return nil
	})
	if err != nil {
		return book.Unavailable("save book", err)
	}
	return nil
}

func (r *redisRepository) Fetch(ctx context.Context, id string) (*book.Book, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, book.Unavailable("fetch book", err)
	}
	if len(fields) == 0 {
		return nil, book.ErrBookNotFound
	}

	b, err := decodeHash(r.spec, id, fields)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *redisRepository) Remove(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return false, book.Unavailable("remove book", err)
	}
	return n > 0, nil
}

// ========================= SEARCH =====================

func (r *redisRepository) Search(ctx context.Context, f *book.Filter) ([]book.Book, error) {
	query, ok, err := buildQuery(r.spec, f)
	if err != nil {
		return nil, err
	}
	books := make([]book.Book, 0)
	if !ok {
		return books, nil
	}

	prefix := r.spec.KeyPrefix()
	for offset := 0; ; {
		res, err := r.client.FTSearchWithArgs(ctx, r.spec.IndexName(), query, &redis.FTSearchOptions{
			LimitOffset: offset,
			Limit:       r.pageSize,
		}).Result()
		if err != nil {
			return nil, book.Unavailable("search books", err)
		}

		for _, doc := range res.Docs {
			b, err := decodeHash(r.spec, strings.TrimPrefix(doc.ID, prefix), doc.Fields)
			if err != nil {
				return nil, err
			}
			// The index splits and trims tags; keep only exact matches
			if f != nil && !matches(&b, f) {
				continue
			}
			books = append(books, b)
		}

		offset += len(res.Docs)
		if len(res.Docs) == 0 || offset >= res.Total {
			break
		}
	}

	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func (r *redisRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return book.Unavailable("ping redis", err)
	}
	return nil
}

func (r *redisRepository) key(id string) string {
	return r.spec.KeyPrefix() + id
}

// buildQuery renders f as a RediSearch query. ok is false when f can match nothing
// and the round trip should be skipped.
func buildQuery(spec book.IndexSpec, f *book.Filter) (query string, ok bool, err error) {
	if f == nil {
		return "*", true, nil
	}
	if err := spec.Check(*f); err != nil {
		return "", false, err
	}

	switch f.Op {
	case book.OpEq:
		// Empty tags are not indexed
		if f.Value == "" {
			return "", false, nil
		}
		tag := tagSegment(f.Value)
		if tag == "" {
			// Only separators and blanks: nothing usable is indexed, scan instead
			return "*", true, nil
		}
		return fmt.Sprintf("@%s:{%s}", f.Field, escapeQuery(tag)), true, nil
	case book.OpBetween:
		return fmt.Sprintf("@%s:[%d %d]", f.Field, f.Min, f.Max), true, nil
	default: // book.OpMatch
		// Same tokens as the whole-word comparison applied to the results
		terms := tokenize(f.Value)
		if len(terms) == 0 {
			return "", false, nil
		}
		return fmt.Sprintf("@%s:(%s)", f.Field, strings.Join(terms, " ")), true, nil
	}
}

// tagSegment picks the longest trimmed segment of an Eq value, which is one of the
// tags RediSearch indexed for any hash holding exactly that value.
func tagSegment(value string) string {
	var longest string
	for _, seg := range strings.Split(value, tagSeparator) {
		seg = strings.TrimSpace(seg)
		if len(seg) > len(longest) {
			longest = seg
		}
	}
	return longest
}

// escapeQuery backslash-escapes everything RediSearch treats as syntax or as a
// token separator.
func escapeQuery(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// encodeHash flattens a book into HASH fields. The id is always written so a book
// without attributes still exists as a key.
func encodeHash(b book.Book) map[string]interface{} {
	values := map[string]interface{}{"id": b.ID}
	for name, v := range b.Values() {
		switch t := v.(type) {
		case int:
			values[name] = strconv.Itoa(t)
		default:
			values[name] = t
		}
	}
	return values
}

func decodeHash(spec book.IndexSpec, id string, fields map[string]string) (book.Book, error) {
	b := book.Book{ID: id}
	targets := b.Targets()
	for _, f := range spec.Fields {
		raw, ok := fields[f.Name]
		if !ok {
			continue
		}
		switch p := targets[f.Name].(type) {
		case **string:
			v := raw
			*p = &v
		case **int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return book.Book{}, fmt.Errorf("decode %s of book %q: %w", f.Name, id, err)
			}
			*p = &n
		}
	}
	return b, nil
}
