package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/util"
)

// ListNotifications returns the newest notifications
// GET /api/v1/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	items, err := h.notifications.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to fetch notifications")
		return
	}
	c.JSON(http.StatusOK, items)
}

// UnreadNotifications counts unread notifications
// GET /api/v1/notifications/unread
func (h *Handlers) UnreadNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	unread, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to count notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

// MarkNotificationsRead flags everything as read
// POST /api/v1/notifications/read
func (h *Handlers) MarkNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	n, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to update notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}
