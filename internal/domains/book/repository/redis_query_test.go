package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-catalog/internal/domains/book"
)

func TestEscapeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Herbert", "Herbert"},
		{"Frank Herbert", `Frank\ Herbert`},
		{"Ursula K. Le Guin", `Ursula\ K\.\ Le\ Guin`},
		{"O'Brien-Smith", `O\'Brien\-Smith`},
		{"a|b{c}", `a\|b\{c\}`},
		{"snake_case", "snake_case"},
		{"Dostoïevski", "Dostoïevski"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeQuery(tt.in))
		})
	}
}

func TestBuildQuery(t *testing.T) {
	spec := book.BookIndex

	q, ok, err := buildQuery(spec, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "*", q)

	q, ok, err = buildQuery(spec, book.Where("author").Eq("Frank Herbert"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `@author:{Frank\ Herbert}`, q)

	q, ok, err = buildQuery(spec, book.Where("year").Between(-50, 1999))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "@year:[-50 1999]", q)

	q, ok, err = buildQuery(spec, book.Where("summary").Matches("  desert   planet-wide "))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `@summary:(desert planet wide)`, q)

	q, ok, err = buildQuery(spec, book.Where("author").Eq("Smith|Jones"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `@author:{Smith}`, q)

	q, ok, err = buildQuery(spec, book.Where("author").Eq(" | "))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "*", q)

	_, ok, err = buildQuery(spec, book.Where("author").Eq(""))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = buildQuery(spec, book.Where("summary").Matches("   "))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = buildQuery(spec, book.Where("isbn").Eq("1"))
	assert.ErrorIs(t, err, book.ErrUnknownField)
}

func TestTagSegment(t *testing.T) {
	assert.Equal(t, "Frank Herbert", tagSegment("Frank Herbert"))
	assert.Equal(t, "Frank Herbert", tagSegment("  Frank Herbert "))
	assert.Equal(t, "Jones-Smith", tagSegment("Li|Jones-Smith|Wu"))
	assert.Equal(t, "", tagSegment("| |"))
}

func TestEncodeDecodeHash(t *testing.T) {
	b := book.Book{
		ID:     "b1",
		Title:  book.StringPtr("Dune"),
		Year:   book.IntPtr(1965),
		Pages:  book.IntPtr(0),
		Author: book.StringPtr(""),
	}

	fields := encodeHash(b)
	assert.Equal(t, map[string]interface{}{
		"id":     "b1",
		"title":  "Dune",
		"author": "",
		"year":   "1965",
		"pages":  "0",
	}, fields)

	raw := make(map[string]string, len(fields))
	for k, v := range fields {
		raw[k] = v.(string)
	}
	got, err := decodeHash(book.BookIndex, "b1", raw)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestDecodeHash_BadNumber(t *testing.T) {
	_, err := decodeHash(book.BookIndex, "b1", map[string]string{"year": "soon"})
	assert.Error(t, err)
}

func TestFieldSchemas(t *testing.T) {
	schemas := fieldSchemas(book.BookIndex)
	require.Len(t, schemas, len(book.BookIndex.Fields))

	byName := make(map[string]int)
	for i, s := range schemas {
		byName[s.FieldName] = i
	}
	author := schemas[byName["author"]]
	assert.Equal(t, "|", author.Separator)
	assert.True(t, author.CaseSensitive)
	assert.True(t, schemas[byName["summary"]].NoStem)
	assert.NotEqual(t, schemas[byName["summary"]].FieldType, schemas[byName["year"]].FieldType)
}
