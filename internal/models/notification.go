package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification type names as stored in notification_types
const (
	NotificationLike    = "Like"
	NotificationComment = "Comment"
	NotificationFollow  = "Follow"
	NotificationRepost  = "Repost"
)

// NotificationTypeNames lists the reference rows seeded by the migrator
var NotificationTypeNames = []string{
	NotificationLike,
	NotificationComment,
	NotificationFollow,
	NotificationRepost,
}

type NotificationType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Notification is the durable record of an interaction. Realtime pushes are
// best effort; this row is what clients read back.
type Notification struct {
	ID            string           `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID   string           `gorm:"type:uuid;not null;index:idx_notifications_recipient_created" json:"recipient_id"`
	TriggerUserID string           `gorm:"type:uuid;not null" json:"trigger_user_id"`
	TypeID        uint             `gorm:"not null" json:"type_id"`
	Type          NotificationType `gorm:"foreignKey:TypeID" json:"-"`
	ContentID     *string          `gorm:"type:uuid" json:"content_id,omitempty"`
	IsRead        bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt     time.Time        `gorm:"index:idx_notifications_recipient_created" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}
