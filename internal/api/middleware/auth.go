// Package middleware provides HTTP middleware for the admin surface.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mxteam/mediabot/internal/services"
)

// OperatorContextKey is the context key holding the validated operator claims.
const OperatorContextKey = "operator"

// AuthMiddleware guards admin routes behind operator tokens.
type AuthMiddleware struct {
	auth services.OperatorAuthService
}

// NewAuthMiddleware creates an authentication middleware.
func NewAuthMiddleware(auth services.OperatorAuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireOperator rejects requests without a valid operator token.
func (m *AuthMiddleware) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			abortUnauthorized(c, "MISSING_TOKEN", "Authorization header with bearer token is required")
			return
		}

		claims, err := m.auth.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "INVALID_TOKEN", "Invalid or expired operator token")
			return
		}

		c.Set(OperatorContextKey, claims)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"type":    "AUTHENTICATION_ERROR",
			"code":    code,
			"message": message,
		},
	})
}
