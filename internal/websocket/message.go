package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// Protocol message types. Domain pushes use the realtime.Event* names.
const (
	MessageTypeSystem   = "system"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
	MessageTypeError    = "error"
	MessageTypeJoinRoom = "join_room"
)

// Message is the frame exchanged in both directions
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	ID        string      `json:"id,omitempty"`
	ReplyTo   string      `json:"reply_to,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

func NewErrorMessage(code string, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ParsePayload decodes the payload of an inbound message into target
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return fmt.Errorf("message has no payload")
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
