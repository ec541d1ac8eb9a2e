package util

import (
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// GetUserIDFromContext returns the authenticated user id. When absent it
// writes a 401 and returns false.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		RespondUnauthorized(c, "unauthorized")
		return "", false
	}
	return userID, true
}
