package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/feed"
	"github.com/projecty/backend/internal/util"
)

// HybridFeed returns the viewer's followed/interest feed page
// GET /api/v1/feed/hybrid?cursor&limit
func (h *Handlers) HybridFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	cursor, err := feed.ParseCursor(c.Query("cursor"), time.Now().UTC())
	if err != nil {
		respondError(c, err, "invalid cursor")
		return
	}
	limit := util.ClampInt(util.ParseInt(c.Query("limit"), feed.DefaultLimit), 1, feed.MaxLimit)

	page, err := h.feed.Hybrid(c.Request.Context(), userID, cursor, limit)
	if err != nil {
		respondError(c, err, "failed to generate feed")
		return
	}
	c.JSON(http.StatusOK, page)
}
