package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// MiddlewareManager validates bearer tokens issued by the external
// identity service. Only validation happens here; login and token
// issuance are not part of this backend.
type MiddlewareManager struct {
	jwtSecret []byte
}

func NewMiddlewareManager(jwtSecret string) *MiddlewareManager {
	return &MiddlewareManager{jwtSecret: []byte(jwtSecret)}
}

// RequireAuth extracts and validates the caller's JWT, storing the
// subject as user_id in the request context. Websocket clients may pass
// the token as a query parameter since browsers cannot set headers on
// upgrade requests.
func (m *MiddlewareManager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := m.userFromToken(extractToken(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

func (m *MiddlewareManager) userFromToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("missing token")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
