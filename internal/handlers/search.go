package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/search"
)

// Search finds users (type=users) or posts (anything else)
// GET /api/v1/search?q&type
func (h *Handlers) Search(c *gin.Context) {
	results, err := search.Run(c.Request.Context(), h.search, c.Query("q"), c.Query("type"))
	if err != nil {
		respondError(c, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, results)
}
