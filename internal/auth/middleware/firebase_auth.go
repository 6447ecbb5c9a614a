package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	appauth "github.com/warranty-tracker/warranty-client/internal/auth"
)

// TokenVerifier checks a bearer token. *auth.Client from the Firebase Admin SDK
// satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

var errInvalidToken = errors.New("invalid token")

// StaticToken accepts exactly one shared token and maps it to UID. It stands in
// for Firebase when the dev server runs without credentials.
type StaticToken struct {
	Token string
	UID   string
	Email string
}

func (s StaticToken) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if s.Token == "" || subtle.ConstantTimeCompare([]byte(idToken), []byte(s.Token)) != 1 {
		return nil, errInvalidToken
	}
	claims := map[string]interface{}{}
	if s.Email != "" {
		claims["email"] = s.Email
	}
	return &auth.Token{UID: s.UID, Claims: claims}, nil
}

// FirebaseAuthMiddleware validates bearer ID tokens and extracts user info
func FirebaseAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		decodedToken, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		// Store user info in context
		c.Set(appauth.CtxFirebaseUID, decodedToken.UID)

		// Extract email from claims if available
		if email, ok := decodedToken.Claims["email"].(string); ok {
			c.Set(appauth.CtxEmail, email)
		}

		// Store the full token for access to other claims if needed
		c.Set("firebase_token", decodedToken)

		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
