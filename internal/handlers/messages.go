package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/util"
)

// ListConversations returns the inbox
// GET /api/v1/messages
func (h *Handlers) ListConversations(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	convs, err := h.messaging.Conversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to fetch conversations")
		return
	}
	c.JSON(http.StatusOK, convs)
}

// GetMessages returns one thread, oldest first
// GET /api/v1/messages/:conversationId
func (h *Handlers) GetMessages(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	msgs, err := h.messaging.Messages(c.Request.Context(), userID, c.Param("conversationId"))
	if err != nil {
		respondError(c, err, "failed to fetch messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// SendMessage posts to a conversation the caller belongs to
// POST /api/v1/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
		Text           string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	msg, err := h.messaging.Send(c.Request.Context(), userID, req.ConversationID, req.Text)
	if err != nil {
		respondError(c, err, "failed to send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// StartConversation finds or creates the thread with targetUserId
// POST /api/v1/messages/start
func (h *Handlers) StartConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		TargetUserID string `json:"targetUserId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	convID, err := h.messaging.Start(c.Request.Context(), userID, req.TargetUserID)
	if err != nil {
		respondError(c, err, "failed to start conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": convID})
}
