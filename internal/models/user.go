package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account. Public profile fields live on Profile.
type User struct {
	ID           string   `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string   `gorm:"uniqueIndex;not null" json:"email"`
	Username     string   `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Profile      *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile holds the display data for a user (one row per user).
type Profile struct {
	UserID      string  `gorm:"primaryKey;type:uuid" json:"user_id"`
	DisplayName string  `gorm:"not null" json:"display_name"`
	Bio         *string `gorm:"type:text" json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
	HeaderURL   *string `json:"header_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Interest is a topic users subscribe to during onboarding
type Interest struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// UserInterest links a user to an interest
type UserInterest struct {
	UserID     string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	InterestID uint      `gorm:"primaryKey" json:"interest_id"`
	Interest   Interest  `gorm:"foreignKey:InterestID" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (UserInterest) TableName() string {
	return "user_interests"
}

// Follow is a directed edge: FollowerID follows FollowingID
type Follow struct {
	FollowerID  string    `gorm:"primaryKey;type:uuid" json:"follower_id"`
	FollowingID string    `gorm:"primaryKey;type:uuid;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserBlock records that BlockerID has blocked BlockedID
type UserBlock struct {
	BlockerID string    `gorm:"primaryKey;type:uuid" json:"blocker_id"`
	BlockedID string    `gorm:"primaryKey;type:uuid;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserBlock) TableName() string {
	return "user_blocks"
}

// BeforeCreate hooks for GORM
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}
