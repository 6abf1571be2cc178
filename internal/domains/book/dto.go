package book

import (
	"errors"
	"math"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Constants for validation
const (
	MaxIDLength         = 128
	MaxTitleLength      = 500
	MaxNameLength       = 255
	MaxSummaryLength    = 20000
	MinYear             = -3000
	MaxYear             = 9999
	MaxSearchTextLength = 256
	MaxPages            = math.MaxInt32 // numeric columns are 32-bit in SQL stores
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._~-]+$`)

// BookRequest - body of POST /books and PUT /book/:id.
// Omitted fields stay absent; PUT replaces the whole book with what is sent.
type BookRequest struct {
	Title     *string `json:"title"`
	Author    *string `json:"author"`
	Summary   *string `json:"summary"`
	Publisher *string `json:"publisher"`
	Year      *int    `json:"year"`
	Pages     *int    `json:"pages"`
}

func (r BookRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, MaxTitleLength)),
		validation.Field(&r.Author, validation.Length(0, MaxNameLength)),
		validation.Field(&r.Summary, validation.Length(0, MaxSummaryLength)),
		validation.Field(&r.Publisher, validation.Length(0, MaxNameLength)),
		validation.Field(&r.Year,
			validation.Min(MinYear).Error("year must be no less than -3000"),
			validation.Max(MaxYear).Error("year must be no greater than 9999"),
		),
		validation.Field(&r.Pages,
			validation.Min(0).Error("pages must not be negative"),
			validation.Max(MaxPages).Error("pages must be no greater than 2147483647"),
		),
	)
	return toValidationError(err)
}

// ToBook converts the request to an entity stored at id.
func (r BookRequest) ToBook(id string) Book {
	return Book{
		ID:        id,
		Title:     r.Title,
		Author:    r.Author,
		Summary:   r.Summary,
		Publisher: r.Publisher,
		Year:      r.Year,
		Pages:     r.Pages,
	}.Clone()
}

// ValidateID checks a client-chosen identifier (PUT /book/:id).
func ValidateID(id string) error {
	err := validation.Validate(id,
		validation.Required.Error("id is required"),
		validation.Length(1, MaxIDLength),
		validation.Match(idPattern).Error("id may only contain letters, digits, '.', '_', '~' and '-'"),
	)
	if err != nil {
		return NewValidationError("id", err.Error())
	}
	return nil
}

// ValidateSearchText checks the q parameter of a full-text search.
// Blank text counts as empty.
func ValidateSearchText(text string) error {
	err := validation.Validate(strings.TrimSpace(text),
		validation.Required.Error("search text is required"),
		validation.RuneLength(1, MaxSearchTextLength),
	)
	if err != nil {
		return NewValidationError("q", err.Error())
	}
	return nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
		for field, fe := range fieldErrs {
			ve.Fields[field] = fe.Error()
		}
		return ve
	}
	return err
}

// IDResponse - {"id": "..."} returned by create and replace.
type IDResponse struct {
	ID string `json:"id"`
}

// InfoResponse - GET /
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Store   string `json:"store"`
}

// RebuildResponse - POST /admin/index/rebuild
type RebuildResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id,omitempty"`
}

// HealthStatus - GET /health
type HealthStatus struct {
	Status string `json:"status"` // ok | degraded
	Store  string `json:"store"`
	Cache  string `json:"cache"`
}

// Healthy reports whether the store answered.
func (h HealthStatus) Healthy() bool {
	return h.Store == "ok"
}
