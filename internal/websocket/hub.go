// Package websocket delivers realtime pushes to connected clients over
// github.com/coder/websocket. Each connection joins the room of its user.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/realtime"
	"go.uber.org/zap"
)

// Hub tracks clients by room and routes published messages to them
type Hub struct {
	rooms      map[string]map[*Client]struct{}
	allClients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	publish    chan *roomMessage

	mu      sync.RWMutex
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	rateLimitConfig RateLimitConfig
}

type roomMessage struct {
	room string
	data []byte
}

// Metrics tracks WebSocket statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig bounds inbound client messages
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MaxMessagesPerSecond: 10, BurstSize: 20}
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:           make(map[string]map[*Client]struct{}),
		allClients:      make(map[*Client]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		publish:         make(chan *roomMessage, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// Run is the hub's event loop; start it in its own goroutine
func (h *Hub) Run() {
	logger.Log.Info("WebSocket hub starting")
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.publish:
			h.deliver(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.allClients[client] = struct{}{}
	h.join(client, realtime.UserRoom(client.UserID))

	h.metrics.TotalConnections.Add(1)
	active := h.metrics.ActiveConnections.Add(1)
	logger.Log.Info("Client connected", logger.WithUserID(client.UserID), zap.Int64("active", active))
}

// join must be called with h.mu held
func (h *Hub) join(client *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return
	}
	delete(h.allClients, client)
	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	client.closeSend()

	active := h.metrics.ActiveConnections.Add(-1)
	logger.Log.Info("Client disconnected", logger.WithUserID(client.UserID), zap.Int64("active", active))
}

func (h *Hub) deliver(msg *roomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[msg.room] {
		select {
		case client.send <- msg.data:
			h.metrics.MessagesSent.Add(1)
		default:
			// slow consumer
			h.metrics.ConnectionsDropped.Add(1)
			go h.Unregister(client)
		}
	}
}

// Publish implements realtime.Notifier. It never blocks on slow clients;
// a full hub queue is reported as an error.
func (h *Hub) Publish(ctx context.Context, event, room string, payload any) error {
	if h.ctx.Err() != nil {
		return fmt.Errorf("hub stopped")
	}
	data, err := json.Marshal(NewMessage(event, payload))
	if err != nil {
		return fmt.Errorf("encode %s push: %w", event, err)
	}
	select {
	case h.publish <- &roomMessage{room: room, data: data}:
		return nil
	case <-h.ctx.Done():
		return fmt.Errorf("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	default:
		h.metrics.Errors.Add(1)
		return fmt.Errorf("hub publish queue full")
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline reports whether userID has at least one connection
func (h *Hub) IsUserOnline(userID string) bool {
	return h.RoomSize(realtime.UserRoom(userID)) > 0
}

// RoomSize returns the number of connections in room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// GetMetrics returns a point-in-time copy of the counters
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

func (m MetricsSnapshot) String() string {
	return fmt.Sprintf("connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped)
}

func (h *Hub) SetRateLimitConfig(cfg RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = cfg
}

func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}

// Shutdown stops Run and closes every client, waiting at most until ctx ends
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"}))
	for client := range h.allClients {
		select {
		case client.send <- data:
		default:
		}
		client.closeSend()
	}
	logger.Log.Info("WebSocket hub stopped", zap.Int("closed", len(h.allClients)))

	h.rooms = make(map[string]map[*Client]struct{})
	h.allClients = make(map[*Client]struct{})
	h.metrics.ActiveConnections.Store(0)
}

var _ realtime.Notifier = (*Hub)(nil)
