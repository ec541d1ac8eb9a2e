package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/projecty/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// CreateUser inserts a user with a profile. Passwords are not hashed.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	if username == "" {
		username = strings.ToLower(gofakeit.Username()) + gofakeit.DigitN(4)
	}
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: user.ID, DisplayName: username}).Error)
	return user
}

// CreatePost inserts a post with a zeroed counters row at createdAt
func CreatePost(t *testing.T, db *gorm.DB, userID, body string, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{UserID: userID, Body: &body, CreatedAt: createdAt.UTC()}
	require.NoError(t, db.Create(post).Error)
	require.NoError(t, db.Create(&models.PostCounters{PostID: post.ID}).Error)
	return post
}

// InterestID returns the id of a seeded interest
func InterestID(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	var interest models.Interest
	require.NoError(t, db.Where("name = ?", name).First(&interest).Error)
	return interest.ID
}

// Subscribe adds an interest to a user
func Subscribe(t *testing.T, db *gorm.DB, userID, interest string) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserInterest{UserID: userID, InterestID: InterestID(t, db, interest)}).Error)
}

// Tag links post to the seeded hashtag of the same (lowercased) name
func Tag(t *testing.T, db *gorm.DB, postID, tag string) {
	t.Helper()
	var hashtag models.Hashtag
	require.NoError(t, db.Where("name = ?", strings.ToLower(tag)).First(&hashtag).Error)
	require.NoError(t, db.Create(&models.PostHashtag{PostID: postID, HashtagID: hashtag.ID}).Error)
}

// Follow makes follower follow following
func Follow(t *testing.T, db *gorm.DB, follower, following string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{FollowerID: follower, FollowingID: following}).Error)
}

// SetLikeCount overwrites a post's like counter
func SetLikeCount(t *testing.T, db *gorm.DB, postID string, n int) {
	t.Helper()
	require.NoError(t, db.Model(&models.PostCounters{}).Where("post_id = ?", postID).Update("like_count", n).Error)
}
