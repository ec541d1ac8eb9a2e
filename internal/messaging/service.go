// Package messaging implements two-person direct message threads.
package messaging

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/realtime"
	"github.com/projecty/backend/internal/repository"
	"github.com/projecty/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSelfMessage    = errors.New("cannot message yourself")
	ErrUserNotFound   = errors.New("user not found")
	ErrNotParticipant = errors.New("not a participant in this conversation")
	ErrEmptyMessage   = errors.New("message text is required")
	ErrMessageTooLong = errors.New("message text is too long")
)

// MaxMessageLength bounds a single message body, in characters
const MaxMessageLength = 4000

// OtherUser is the counterpart shown in a conversation list
type OtherUser struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	Avatar      *string `json:"avatar"`
}

// ConversationSummary is one row of the inbox
type ConversationSummary struct {
	ID          string    `json:"id"`
	User        OtherUser `json:"user"`
	LastMessage *string   `json:"lastMessage"`
	Timestamp   time.Time `json:"timestamp"`
	Unread      int64     `json:"unread"`
}

// MessageView is one message in a thread
type MessageView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	SenderID       string    `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
}

// MessagePush is the realtime payload for a new message
type MessagePush struct {
	Type    string      `json:"type"`
	Message MessageView `json:"message"`
}

// Service implements the inbox, threads and sending
type Service struct {
	db       *gorm.DB
	users    repository.UserRepository
	notifier realtime.Notifier
}

func NewService(db *gorm.DB, notifier realtime.Notifier) *Service {
	if notifier == nil {
		notifier = realtime.Nop{}
	}
	return &Service{db: db, users: repository.NewUserRepository(db), notifier: notifier}
}

type conversationRow struct {
	ConversationID string
	CreatedAt      time.Time
	UserID         string
	Username       string
	DisplayName    string
	AvatarURL      *string
	LastMessage    *string
	LastSentAt     *time.Time
	Unread         int64
}

// Conversations lists userID's threads, most recently active first. Unread
// counts the other participant's messages newer than userID's latest one.
func (s *Service) Conversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	var rows []conversationRow
	err := s.db.WithContext(ctx).Table("conversation_participants AS cp").
		Select("cp.conversation_id, conversations.created_at, users.id AS user_id, users.username, "+
			"COALESCE(profiles.display_name, users.username) AS display_name, profiles.avatar_url, "+
			"lm.body AS last_message, lm.sent_at AS last_sent_at, "+
			"(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = cp.conversation_id AND m.sender_id <> ? "+
			"AND NOT EXISTS (SELECT 1 FROM messages mine WHERE mine.conversation_id = m.conversation_id "+
			"AND mine.sender_id = ? AND mine.sent_at >= m.sent_at)) AS unread", userID, userID).
		Joins("JOIN conversations ON conversations.id = cp.conversation_id").
		Joins("JOIN users ON users.id = cp.user_id").
		Joins("LEFT JOIN profiles ON profiles.user_id = users.id").
		Joins("LEFT JOIN messages AS lm ON lm.id = (SELECT m.id FROM messages m WHERE m.conversation_id = cp.conversation_id ORDER BY m.sent_at DESC, m.id DESC LIMIT 1)").
		Where("cp.conversation_id IN (SELECT conversation_id FROM conversation_participants WHERE user_id = ?)", userID).
		Where("cp.user_id <> ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summary := ConversationSummary{
			ID: row.ConversationID,
			User: OtherUser{
				ID:          row.UserID,
				Username:    row.Username,
				DisplayName: row.DisplayName,
				Avatar:      row.AvatarURL,
			},
			LastMessage: row.LastMessage,
			Timestamp:   row.CreatedAt,
			Unread:      row.Unread,
		}
		if row.LastSentAt != nil {
			summary.Timestamp = *row.LastSentAt
		}
		out = append(out, summary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Messages returns a thread oldest first
func (s *Service) Messages(ctx context.Context, userID, conversationID string) ([]MessageView, error) {
	if !util.IsUUID(conversationID) {
		return nil, ErrNotParticipant
	}
	db := s.db.WithContext(ctx)
	if err := requireParticipant(db, conversationID, userID); err != nil {
		return nil, err
	}

	out := []MessageView{}
	err := db.Table("messages").
		Select("messages.id, messages.conversation_id, messages.body AS text, messages.sent_at AS timestamp, messages.sender_id, users.username AS sender_username").
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.conversation_id = ?", conversationID).
		Order("messages.sent_at ASC, messages.id ASC").
		Scan(&out).Error
	return out, err
}

// Send appends a message and pushes it to the other participant
func (s *Service) Send(ctx context.Context, userID, conversationID, text string) (*MessageView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if !util.IsUUID(conversationID) {
		return nil, ErrNotParticipant
	}

	db := s.db.WithContext(ctx)
	if err := requireParticipant(db, conversationID, userID); err != nil {
		return nil, err
	}

	sender, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{ConversationID: conversationID, SenderID: userID, Body: text}
	if err := db.Create(msg).Error; err != nil {
		return nil, err
	}

	view := MessageView{
		ID:             msg.ID,
		ConversationID: conversationID,
		Text:           msg.Body,
		Timestamp:      msg.SentAt,
		SenderID:       userID,
		SenderUsername: sender.Username,
	}

	var others []string
	if err := db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id <> ?", conversationID, userID).
		Pluck("user_id", &others).Error; err != nil {
		logger.Log.Warn("Failed to load message recipients", logger.WithConversationID(conversationID), zap.Error(err))
	}
	for _, other := range others {
		realtime.Deliver(ctx, s.notifier, realtime.EventMessage, realtime.UserRoom(other), MessagePush{
			Type:    realtime.EventMessage,
			Message: view,
		})
	}

	return &view, nil
}

// Start returns the conversation between userID and targetID, creating it
// with both participant rows when none exists
func (s *Service) Start(ctx context.Context, userID, targetID string) (string, error) {
	if userID == targetID {
		return "", ErrSelfMessage
	}
	if !util.IsUUID(targetID) {
		return "", ErrUserNotFound
	}

	exists, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrUserNotFound
	}

	db := s.db.WithContext(ctx)
	if id, err := findConversation(db, userID, targetID); err != nil || id != "" {
		return id, err
	}

	conv := &models.Conversation{}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		return tx.Create([]models.ConversationParticipant{
			{ConversationID: conv.ID, UserID: userID},
			{ConversationID: conv.ID, UserID: targetID},
		}).Error
	})
	if err != nil {
		return "", err
	}

	logger.Log.Info("Conversation started",
		logger.WithConversationID(conv.ID),
		logger.WithUserID(userID),
		zap.String("target_id", targetID))
	return conv.ID, nil
}

func findConversation(db *gorm.DB, a, b string) (string, error) {
	var ids []string
	err := db.Table("conversation_participants AS cp1").
		Joins("JOIN conversation_participants AS cp2 ON cp2.conversation_id = cp1.conversation_id").
		Where("cp1.user_id = ? AND cp2.user_id = ?", a, b).
		Limit(1).
		Pluck("cp1.conversation_id", &ids).Error
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[0], nil
}

func requireParticipant(db *gorm.DB, conversationID, userID string) error {
	var count int64
	if err := db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotParticipant
	}
	return nil
}
