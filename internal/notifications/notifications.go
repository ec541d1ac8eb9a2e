// Package notifications records and reads the durable notification feed.
package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/projecty/backend/internal/models"
	"gorm.io/gorm"
)

// ListLimit caps how many notifications List returns
const ListLimit = 50

// Event is one interaction worth telling the recipient about
type Event struct {
	RecipientID   string
	TriggerUserID string
	Type          string // one of the models.Notification* names
	ContentID     *string
}

// Record inserts a notification for e using tx. Self-notifications are
// skipped; the bool reports whether a row was written.
func Record(tx *gorm.DB, e Event) (bool, error) {
	if e.RecipientID == "" || e.RecipientID == e.TriggerUserID {
		return false, nil
	}

	var typ models.NotificationType
	if err := tx.Where("name = ?", e.Type).First(&typ).Error; err != nil {
		return false, fmt.Errorf("notification type %q: %w", e.Type, err)
	}

	n := &models.Notification{
		RecipientID:   e.RecipientID,
		TriggerUserID: e.TriggerUserID,
		TypeID:        typ.ID,
		ContentID:     e.ContentID,
	}
	if err := tx.Create(n).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Message returns the human-readable verb phrase for a type name
func Message(typeName string) string {
	switch typeName {
	case models.NotificationLike:
		return "liked your post"
	case models.NotificationComment:
		return "commented on your post"
	case models.NotificationFollow:
		return "started following you"
	case models.NotificationRepost:
		return "reposted your post"
	default:
		return "interacted with you"
	}
}

// TriggerUser is the actor shown next to a notification
type TriggerUser struct {
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
}

// Item is one rendered notification
type Item struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Message     string      `json:"message"`
	ContentID   *string     `json:"contentId,omitempty"`
	IsRead      bool        `json:"isRead"`
	Timestamp   time.Time   `json:"timestamp"`
	TriggerUser TriggerUser `json:"triggerUser"`
}

type row struct {
	ID        string
	TypeName  string
	ContentID *string
	IsRead    bool
	CreatedAt time.Time
	Username  string
	AvatarURL *string
}

// Service reads notifications for a recipient
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns the newest notifications for userID
func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	var rows []row
	err := s.db.WithContext(ctx).
		Table("notifications n").
		Select("n.id, nt.name AS type_name, n.content_id, n.is_read, n.created_at, u.username, p.avatar_url").
		Joins("JOIN notification_types nt ON nt.id = n.type_id").
		Joins("JOIN users u ON u.id = n.trigger_user_id").
		Joins("LEFT JOIN profiles p ON p.user_id = u.id").
		Where("n.recipient_id = ?", userID).
		Order("n.created_at DESC").
		Limit(ListLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{
			ID:          r.ID,
			Type:        strings.ToLower(r.TypeName),
			Message:     r.Username + " " + Message(r.TypeName),
			ContentID:   r.ContentID,
			IsRead:      r.IsRead,
			Timestamp:   r.CreatedAt,
			TriggerUser: TriggerUser{Username: r.Username, Avatar: r.AvatarURL},
		})
	}
	return items, nil
}

// UnreadCount counts unread notifications for userID
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkAllRead flags every notification of userID as read
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
