package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health pings the database
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, dbStatus := http.StatusOK, "ok"
	if err := h.pingDB(ctx); err != nil {
		status, dbStatus = http.StatusServiceUnavailable, err.Error()
	}
	c.JSON(status, gin.H{
		"status":    http.StatusText(status),
		"database":  dbStatus,
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handlers) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
