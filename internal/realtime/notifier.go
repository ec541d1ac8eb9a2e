// Package realtime defines how committed writes are pushed to connected
// clients. Delivery is best effort: the notifications table is the durable
// record and nothing here retries.
package realtime

import (
	"context"

	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/metrics"
	"go.uber.org/zap"
)

// Event names pushed to clients
const (
	EventLike    = "like"
	EventRepost  = "repost"
	EventComment = "comment"
	EventFollow  = "follow"
	EventMessage = "message"
)

// Notifier pushes payload to every client in room
type Notifier interface {
	Publish(ctx context.Context, event, room string, payload any) error
}

// UserRoom names the room a user's connections join
func UserRoom(userID string) string {
	return "user_" + userID
}

// Nop drops everything
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }

// Deliver publishes and logs a failure instead of returning it. Call it only
// after the write it describes has committed.
func Deliver(ctx context.Context, n Notifier, event, room string, payload any) {
	if n == nil {
		return
	}
	err := n.Publish(ctx, event, room, payload)
	metrics.RecordRealtimePublish(event, err)
	if err != nil {
		logger.Log.Warn("Realtime push failed",
			zap.String("event", event),
			zap.String("room", room),
			zap.Error(err))
	}
}

// Payload is the body of like, repost, comment and follow pushes
type Payload struct {
	Type        string `json:"type"`
	PostID      string `json:"postId,omitempty"`
	TriggeredBy string `json:"triggeredBy"`
	Message     string `json:"message"`
}
