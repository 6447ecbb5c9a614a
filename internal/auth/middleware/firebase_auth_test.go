package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appauth "github.com/warranty-tracker/warranty-client/internal/auth"
)

func TestStaticToken(t *testing.T) {
	v := StaticToken{Token: "secret", UID: "uid-1", Email: "a@example.com"}

	tok, err := v.VerifyIDToken(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", tok.UID)
	assert.Equal(t, "a@example.com", tok.Claims["email"])

	_, err = v.VerifyIDToken(context.Background(), "wrong")
	assert.Error(t, err)

	_, err = StaticToken{}.VerifyIDToken(context.Background(), "")
	assert.Error(t, err)
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(FirebaseAuthMiddleware(StaticToken{Token: "secret", UID: "uid-1", Email: "a@example.com"}))
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"uid":   appauth.UserFirebaseUID(c),
			"email": c.GetString(appauth.CtxEmail),
		})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"uid":"uid-1","email":"a@example.com"}`, w.Body.String())
			}
		})
	}
}

func TestOptionalUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(appauth.OptionalUser())
	router.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, appauth.UserFirebaseUID(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, "demo-user", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-Id", "alice")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "alice", w.Body.String())
}
