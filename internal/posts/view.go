package posts

import (
	"time"

	"gorm.io/gorm"
)

// View is a post joined with its author and counters, the shape every post
// listing returns
type View struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"displayName"`
	AvatarURL      *string   `json:"avatarUrl"`
	Content        *string   `json:"content"`
	ImageURL       *string   `json:"imageUrl"`
	OriginalPostID *string   `json:"originalPostId"`
	LikeCount      int       `json:"likeCount"`
	CommentCount   int       `json:"commentCount"`
	RepostCount    int       `json:"repostCount"`
	CreatedAt      time.Time `json:"createdAt"`

	// Source is set by the feed: "Followed" or "Interest"
	Source string `json:"source,omitempty" gorm:"-"`
}

const viewColumns = `posts.id, posts.user_id, users.username, profiles.display_name, profiles.avatar_url,
	posts.body AS content, posts.image_url, posts.original_post_id,
	COALESCE(post_counters.like_count, 0) AS like_count,
	COALESCE(post_counters.comment_count, 0) AS comment_count,
	COALESCE(post_counters.repost_count, 0) AS repost_count,
	posts.created_at`

// ViewQuery selects View rows from posts. Callers add filters and ordering.
func ViewQuery(db *gorm.DB) *gorm.DB {
	return db.Table("posts").
		Select(viewColumns).
		Joins("JOIN users ON users.id = posts.user_id").
		Joins("LEFT JOIN profiles ON profiles.user_id = posts.user_id").
		Joins("LEFT JOIN post_counters ON post_counters.post_id = posts.id")
}

// CommentView is a comment with its author's username
type CommentView struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
