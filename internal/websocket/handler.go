package websocket

import (
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/auth"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/util"
	"go.uber.org/zap"
)

// Handler upgrades authenticated HTTP requests to WebSocket connections
type Handler struct {
	hub    *Hub
	parser auth.TokenParser

	// OriginPatterns is passed to websocket.Accept; empty allows any origin
	OriginPatterns []string
}

func NewHandler(hub *Hub, parser auth.TokenParser) *Handler {
	return &Handler{hub: hub, parser: parser}
}

// HandleWebSocket authenticates with ?token=... or a Bearer header, then
// upgrades and joins the caller to its user room.
// GET /ws
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		util.RespondUnauthorized(c, "missing token")
		return
	}

	claims, err := h.parser.ParseToken(token)
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", zap.Error(err))
		util.RespondUnauthorized(c, "invalid or expired token")
		return
	}

	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if len(h.OriginPatterns) == 0 {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.OriginPatterns
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", logger.WithUserID(claims.UserID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, claims.UserID, claims.Username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}

// HandleMetrics returns hub statistics
// GET /ws/metrics
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.GetMetrics())
}

func (h *Handler) Hub() *Hub {
	return h.hub
}
