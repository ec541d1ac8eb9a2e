package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/util"
)

// TokenParser validates a bearer token
type TokenParser interface {
	ParseToken(tokenString string) (*Claims, error)
}

// Middleware requires "Authorization: Bearer <jwt>" and stores the user id
// and username in the gin context.
func Middleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			util.RespondUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := parser.ParseToken(strings.TrimSpace(token))
		if err != nil {
			util.RespondUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(util.ContextUserID, claims.UserID)
		c.Set(util.ContextUsername, claims.Username)
		c.Next()
	}
}
