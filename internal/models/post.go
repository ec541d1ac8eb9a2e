package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is immutable once created. Body may be nil only for a pure repost.
type Post struct {
	ID             string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string  `gorm:"type:uuid;not null;index" json:"user_id"`
	User           User    `gorm:"foreignKey:UserID" json:"-"`
	Body           *string `gorm:"type:text" json:"body"`
	ImageURL       *string `json:"image_url,omitempty"`
	OriginalPostID *string `gorm:"type:uuid;index" json:"original_post_id,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// PostCounters is the denormalized aggregate for a post. Application code is
// the only writer; see package counters.
type PostCounters struct {
	PostID       string    `gorm:"primaryKey;type:uuid" json:"post_id"`
	LikeCount    int       `gorm:"not null;default:0" json:"like_count"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	RepostCount  int       `gorm:"not null;default:0" json:"repost_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (PostCounters) TableName() string {
	return "post_counters"
}

// PostLike exists while UserID likes PostID
type PostLike struct {
	UserID    string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	PostID    string    `gorm:"primaryKey;type:uuid;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PostLike) TableName() string {
	return "post_likes"
}

type Comment struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID    string    `gorm:"type:uuid;not null;index" json:"post_id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Repost links a reposting user to the original post. PostID is the post row
// created for the repost itself; Quote is nil for a pure repost.
type Repost struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string    `gorm:"type:uuid;not null;index" json:"user_id"`
	OriginalPostID string    `gorm:"type:uuid;not null;index" json:"original_post_id"`
	PostID         string    `gorm:"type:uuid;not null;uniqueIndex" json:"post_id"`
	Quote          *string   `gorm:"type:text" json:"quote,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Repost) TableName() string {
	return "reposts"
}

// Hashtag tags posts. InterestID ties the tag to a topic for feed matching.
type Hashtag struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name       string    `gorm:"uniqueIndex;not null" json:"name"`
	InterestID *uint     `gorm:"index" json:"interest_id,omitempty"`
	Interest   *Interest `gorm:"foreignKey:InterestID" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type PostHashtag struct {
	PostID    string `gorm:"primaryKey;type:uuid" json:"post_id"`
	HashtagID string `gorm:"primaryKey;type:uuid;index" json:"hashtag_id"`
}

func (PostHashtag) TableName() string {
	return "post_hashtags"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (r *Repost) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (h *Hashtag) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = generateUUID()
	}
	return nil
}
