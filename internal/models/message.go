package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is a direct-message thread between exactly two users. The
// two-participant rule is kept by messaging.Service, not by a constraint.
type Conversation struct {
	ID           string                    `gorm:"primaryKey;type:uuid" json:"id"`
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"-"`
	CreatedAt    time.Time                 `json:"created_at"`
}

type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;type:uuid" json:"conversation_id"`
	UserID         string    `gorm:"primaryKey;type:uuid;index" json:"user_id"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

type Message struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ConversationID string    `gorm:"type:uuid;not null;index:idx_messages_conversation_sent" json:"conversation_id"`
	SenderID       string    `gorm:"type:uuid;not null;index" json:"sender_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	SentAt         time.Time `gorm:"autoCreateTime;index:idx_messages_conversation_sent" json:"sent_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}
