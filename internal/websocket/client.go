package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/realtime"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	// must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is one WebSocket connection
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID   string
	Username string

	send chan []byte

	// guarded by hub.mu
	rooms map[string]struct{}

	ConnectedAt time.Time
	RemoteAddr  string
	UserAgent   string

	rateLimiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	sendClosed bool
}

// RateLimiter is a token bucket
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow consumes a token if one is available
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.tokens += now.Sub(r.lastTime).Seconds() * r.refill
	r.lastTime = now
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := hub.GetRateLimitConfig()
	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Username:    username,
		send:        make(chan []byte, sendBufferSize),
		rooms:       make(map[string]struct{}),
		ConnectedAt: time.Now(),
		rateLimiter: NewRateLimiter(cfg.MaxMessagesPerSecond, cfg.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump reads client frames until the connection ends
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		// liveness is checked by WritePump's pings; a read deadline would
		// close idle connections
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Debug("Client closed connection", logger.WithUserID(c.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("WebSocket read error", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			continue
		}
		c.hub.metrics.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}
		c.handleMessage(&message)
	}
}

// WritePump drains the send channel and pings on an interval
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				logger.Log.Warn("WebSocket write error", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypePing:
		pong := NewMessage(MessageTypePong, nil)
		pong.ReplyTo = message.ID
		_ = c.Send(pong)

	case MessageTypeJoinRoom:
		// a client may only (re)join its own user room
		var room string
		if err := message.ParsePayload(&room); err != nil || (room != c.UserID && room != realtime.UserRoom(c.UserID)) {
			c.SendError("forbidden_room", "You can only join your own room")
			return
		}
		_ = c.Send(NewMessage(MessageTypeSystem, SystemPayload{Event: "joined", Message: realtime.UserRoom(c.UserID)}))

	default:
		c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", message.Type))
	}
}

// Send queues message without blocking
func (c *Client) Send(message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.sendClosed {
		return fmt.Errorf("client connection closed")
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// closeSend is called by the hub once the client leaves every room
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// Close cancels the pumps and closes the socket. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "closing")
	}
}
