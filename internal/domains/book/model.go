package book

// Book is the catalog entity. Every attribute is optional: a field left out of a
// payload stays absent (nil) instead of being defaulted to its zero value.
type Book struct {
	ID        string  `json:"id"`
	Title     *string `json:"title,omitempty"`
	Author    *string `json:"author,omitempty"`
	Summary   *string `json:"summary,omitempty"`
	Publisher *string `json:"publisher,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Pages     *int    `json:"pages,omitempty"`
}

// Values returns the attributes that are set, keyed by their declared field name.
// Strings stay strings and numbers stay ints.
func (b *Book) Values() map[string]any {
	values := make(map[string]any, 6)
	for name, target := range b.Targets() {
		switch p := target.(type) {
		case **string:
			if *p != nil {
				values[name] = **p
			}
		case **int:
			if *p != nil {
				values[name] = **p
			}
		}
	}
	return values
}

// Targets returns pointers to the attribute slots keyed by field name. Repositories
// use it as scan destinations, so the keys must match BookIndex.
func (b *Book) Targets() map[string]any {
	return map[string]any{
		"title":     &b.Title,
		"author":    &b.Author,
		"summary":   &b.Summary,
		"publisher": &b.Publisher,
		"year":      &b.Year,
		"pages":     &b.Pages,
	}
}

// Clone returns a deep copy so callers never share attribute pointers.
func (b Book) Clone() Book {
	return Book{
		ID:        b.ID,
		Title:     cloneString(b.Title),
		Author:    cloneString(b.Author),
		Summary:   cloneString(b.Summary),
		Publisher: cloneString(b.Publisher),
		Year:      cloneInt(b.Year),
		Pages:     cloneInt(b.Pages),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// StringPtr and IntPtr are small helpers for building books in code and tests.
func StringPtr(s string) *string { return &s }

func IntPtr(i int) *int { return &i }
