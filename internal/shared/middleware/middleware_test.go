package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-catalog/internal/shared/response"
	"book-catalog/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.Error {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.False(t, body.Success)
	return *body.Error
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := perform(r, http.MethodGet, "/", nil)
	generated := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	w = perform(r, http.MethodGet, "/", map[string]string{HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestAuth(t *testing.T) {
	manager := jwt.NewManager("secret", time.Hour)

	r := gin.New()
	r.Use(Auth(manager))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextSubject)+"/"+c.GetString(ContextRole))
	})

	w := perform(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Code)

	w = perform(r, http.MethodGet, "/", map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodGet, "/", map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := manager.GenerateAccessToken("ops", "editor")
	require.NoError(t, err)
	w = perform(r, http.MethodGet, "/", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops/editor", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	manager := jwt.NewManager("secret", time.Hour)

	r := gin.New()
	r.Use(Auth(manager), RequireRole("admin"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	editor, err := manager.GenerateAccessToken("ed", "editor")
	require.NoError(t, err)
	w := perform(r, http.MethodGet, "/", map[string]string{"Authorization": "Bearer " + editor})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, w).Code)

	admin, err := manager.GenerateAccessToken("root", "admin")
	require.NoError(t, err)
	w = perform(r, http.MethodGet, "/", map[string]string{"Authorization": "Bearer " + admin})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w).Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodOptions, "/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), HeaderRequestID)
}
