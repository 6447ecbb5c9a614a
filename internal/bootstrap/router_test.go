package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/warranty-tracker/warranty-client/internal/auth/middleware"
	"github.com/warranty-tracker/warranty-client/internal/devserver"
)

func TestBuildRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := BuildRouter(RouterDeps{
		ServiceName: "warranty-devserver",
		Version:     "test",
		Verifier:    middleware.StaticToken{Token: "secret", UID: "uid-1"},
		AuthMode:    "static",
		Server:      devserver.New(),
	})

	t.Run("health is public", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/company", nil)
		req.Header.Set("X-Request-Id", "rid-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "rid-1", w.Header().Get("X-Request-Id"))
	})

	t.Run("catalog writes need a token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/company", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("user routes need a token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/warranty", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		req.Header.Set("Authorization", "Bearer secret")
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/company", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSetGinMode(t *testing.T) {
	defer gin.SetMode(gin.TestMode)
	SetGinMode("production")
	assert.Equal(t, gin.ReleaseMode, gin.Mode())
}
