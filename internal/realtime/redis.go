package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/projecty/backend/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the pub/sub channel shared by all API instances
const DefaultChannel = "projecty:realtime"

// Envelope is the wire form of a publish on the Redis channel
type Envelope struct {
	Event   string          `json:"event"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// RedisNotifier fans pushes out through Redis so that whichever instance
// holds the recipient's socket delivers it.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

// Publish encodes the push and PUBLISHes it
func (r *RedisNotifier) Publish(ctx context.Context, event, room string, payload any) error {
	data, err := EncodeEnvelope(event, room, payload)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Relay subscribes to the channel and hands each envelope to local until ctx
// is cancelled.
func (r *RedisNotifier) Relay(ctx context.Context, local Notifier) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	logger.Log.Info("Realtime relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := DecodeEnvelope([]byte(msg.Payload))
			if err != nil {
				logger.WarnWithFields("Dropping malformed realtime envelope", err)
				continue
			}
			Deliver(ctx, local, env.Event, env.Room, env.Payload)
		}
	}
}

// EncodeEnvelope marshals one publish
func EncodeEnvelope(event, room string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return json.Marshal(Envelope{Event: event, Room: room, Payload: raw})
}

// DecodeEnvelope parses one publish; event and room are required
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Event == "" || env.Room == "" {
		return nil, fmt.Errorf("envelope missing event or room")
	}
	return &env, nil
}
