package book

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// FieldType is how the store indexes a declared field.
type FieldType string

const (
	// FieldString is matched exactly (case-sensitive), e.g. author.
	FieldString FieldType = "string"
	// FieldText is tokenized for full-text matching, e.g. summary.
	FieldText FieldType = "text"
	// FieldNumber supports numeric range filters.
	FieldNumber FieldType = "number"
)

// FieldSpec declares one indexed field.
type FieldSpec struct {
	Name string
	Type FieldType
}

// IndexSpec is the index declaration for one entity kind. It is kept apart from the
// Book record so the Go type stays statically checked while the store only sees
// index metadata.
type IndexSpec struct {
	// Name is the entity name; Redis keys are "<Name>:<id>".
	Name string
	// Collection is the SQL table name.
	Collection string
	Fields     []FieldSpec
}

// BookIndex is the index declaration for Book. Field names must match Book.Targets.
var BookIndex = IndexSpec{
	Name:       "book",
	Collection: "books",
	Fields: []FieldSpec{
		{Name: "title", Type: FieldString},
		{Name: "author", Type: FieldString},
		{Name: "summary", Type: FieldText},
		{Name: "publisher", Type: FieldString},
		{Name: "year", Type: FieldNumber},
		{Name: "pages", Type: FieldNumber},
	},
}

// Field looks a field up by name.
func (s IndexSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns the declared field names in declaration order.
func (s IndexSpec) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// KeyPrefix is the Redis key prefix for entities of this kind.
func (s IndexSpec) KeyPrefix() string {
	return s.Name + ":"
}

// IndexName is the search index name.
func (s IndexSpec) IndexName() string {
	return s.Name + ":index"
}

// Hash fingerprints the declaration. A stored index whose hash differs from the
// current one is stale and gets recreated.
func (s IndexSpec) Hash() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('|')
	b.WriteString(s.Collection)
	for _, f := range s.Fields {
		b.WriteByte('|')
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(string(f.Type))
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Check verifies that a filter targets a declared field of the right type.
func (s IndexSpec) Check(f Filter) error {
	field, ok := s.Field(f.Field)
	if !ok {
		return unknownField(f.Field, "is not indexed")
	}

	var want FieldType
	switch f.Op {
	case OpEq:
		want = FieldString
	case OpBetween:
		want = FieldNumber
	case OpMatch:
		want = FieldText
	default:
		return unknownField(f.Field, "has an unsupported operator")
	}
	if field.Type != want {
		return unknownField(f.Field, "is a "+string(field.Type)+" field, not "+string(want))
	}
	return nil
}
