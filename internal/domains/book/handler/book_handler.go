package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"book-catalog/internal/domains/book"
	"book-catalog/internal/shared/middleware"
	"book-catalog/internal/shared/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BookHandler - HTTP handlers for the book catalog
type BookHandler struct {
	service book.Service
	info    book.InfoResponse
}

// NewBookHandler - Constructor with DI
func NewBookHandler(service book.Service, info book.InfoResponse) *BookHandler {
	return &BookHandler{service: service, info: info}
}

// ════════════════════════════════════════════════════════════════
// WRITE: Replace - PUT /book/:id
// ════════════════════════════════════════════════════════════════

func (h *BookHandler) Replace(c *gin.Context) {
	req, ok := bindBook(c)
	if !ok {
		return
	}

	id, err := h.service.Replace(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, book.IDResponse{ID: id})
}

// ════════════════════════════════════════════════════════════════
// WRITE: Create - POST /books
// ════════════════════════════════════════════════════════════════

func (h *BookHandler) Create(c *gin.Context) {
	req, ok := bindBook(c)
	if !ok {
		return
	}

	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, book.IDResponse{ID: id})
}

// ════════════════════════════════════════════════════════════════
// READ: Get - GET /book/:id
// ════════════════════════════════════════════════════════════════

func (h *BookHandler) Get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// ════════════════════════════════════════════════════════════════
// DELETE: Delete - DELETE /book/:id
// ════════════════════════════════════════════════════════════════

// Delete answers the JSON string "OK" whether or not the book existed.
func (h *BookHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// ════════════════════════════════════════════════════════════════
// SEARCH
// ════════════════════════════════════════════════════════════════

// List - GET /books
func (h *BookHandler) List(c *gin.Context) {
	books, err := h.service.List(c.Request.Context())
	writeBooks(c, books, err)
}

// ListByAuthor - GET /books/by-author/:author
func (h *BookHandler) ListByAuthor(c *gin.Context) {
	books, err := h.service.ListByAuthor(c.Request.Context(), c.Param("author"))
	writeBooks(c, books, err)
}

// ListByYear - GET /books/by-year/:from/:to
func (h *BookHandler) ListByYear(c *gin.Context) {
	from, err := strconv.Atoi(c.Param("from"))
	if err != nil {
		handleError(c, book.NewValidationError("from", "must be an integer"))
		return
	}
	to, err := strconv.Atoi(c.Param("to"))
	if err != nil {
		handleError(c, book.NewValidationError("to", "must be an integer"))
		return
	}

	books, err := h.service.ListByYearRange(c.Request.Context(), from, to)
	writeBooks(c, books, err)
}

// Search - GET /books/search?q=
func (h *BookHandler) Search(c *gin.Context) {
	books, err := h.service.SearchSummary(c.Request.Context(), c.Query("q"))
	writeBooks(c, books, err)
}

func writeBooks(c *gin.Context, books []book.Book, err error) {
	if err != nil {
		handleError(c, err)
		return
	}
	if books == nil {
		books = []book.Book{}
	}
	c.JSON(http.StatusOK, books)
}

// ════════════════════════════════════════════════════════════════
// EXPORT: GET /books/export
// ════════════════════════════════════════════════════════════════

func (h *BookHandler) Export(c *gin.Context) {
	f, err := h.service.Export(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		handleError(c, fmt.Errorf("write spreadsheet: %w", err))
		return
	}

	filename := fmt.Sprintf("books-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ════════════════════════════════════════════════════════════════
// SERVICE: GET /, GET /health, POST /admin/index/rebuild
// ════════════════════════════════════════════════════════════════

func (h *BookHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.info)
}

func (h *BookHandler) Health(c *gin.Context) {
	status := h.service.Health(c.Request.Context())
	if !status.Healthy() {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *BookHandler) RebuildIndex(c *gin.Context) {
	taskID, err := h.service.ScheduleIndexRebuild(c.Request.Context(), c.GetString(middleware.ContextSubject))
	if err != nil {
		handleError(c, err)
		return
	}

	if taskID == "" {
		c.JSON(http.StatusOK, book.RebuildResponse{Status: "rebuilt"})
		return
	}
	c.JSON(http.StatusAccepted, book.RebuildResponse{Status: "scheduled", TaskID: taskID})
}

// ════════════════════════════════════════════════════════════════
// HELPERS
// ════════════════════════════════════════════════════════════════

// bindBook decodes the request body. An empty body is an empty book.
func bindBook(c *gin.Context) (*book.BookRequest, bool) {
	var req book.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return &req, true
		}
		handleError(c, bindError(err))
		return nil, false
	}
	return &req, true
}

func bindError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return book.NewValidationError(typeErr.Field, "must be "+jsonKind(typeErr.Type.Kind().String()))
	}
	return book.NewValidationError("body", "must be a JSON object")
}

func jsonKind(goKind string) string {
	switch goKind {
	case "int", "int64":
		return "an integer"
	case "string":
		return "a string"
	default:
		return "a " + goKind
	}
}

// handleError maps domain errors to the error envelope.
func handleError(c *gin.Context, err error) {
	status := book.ToHTTPStatus(err)
	code := book.ToErrorCode(err)

	var ve *book.ValidationError
	if errors.As(err, &ve) {
		response.ErrorWithDetails(c, status, code, book.ErrValidationFailed.Error(), ve.Fields)
		return
	}

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.ContextRequestID)).
			Str("code", code).
			Msg("Request failed")
		response.ErrorResponse(c, status, code, publicMessage(err))
		return
	}

	response.ErrorResponse(c, status, code, err.Error())
}

// publicMessage hides store internals behind the sentinel text.
func publicMessage(err error) string {
	for _, sentinel := range []error{book.ErrIndexCreation, book.ErrStoreUnavailable} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}
