package search

import (
	"time"

	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/util"
)

// UserDoc is the users index document
type UserDoc struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostDoc is the posts index document
type PostDoc struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Body      string    `json:"body"`
	Hashtags  []string  `json:"hashtags"`
	CreatedAt time.Time `json:"created_at"`
}

// UserToDoc converts a user with its profile preloaded
func UserToDoc(user models.User) UserDoc {
	doc := UserDoc{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.Username,
		CreatedAt:   user.CreatedAt,
	}
	if user.Profile != nil {
		doc.DisplayName = user.Profile.DisplayName
		if user.Profile.Bio != nil {
			doc.Bio = *user.Profile.Bio
		}
	}
	return doc
}

// PostToDoc converts a post. Hashtags are read from the body.
func PostToDoc(post models.Post, username string) PostDoc {
	doc := PostDoc{
		ID:        post.ID,
		UserID:    post.UserID,
		Username:  username,
		Hashtags:  []string{},
		CreatedAt: post.CreatedAt,
	}
	if post.Body != nil {
		doc.Body = *post.Body
		if tags := util.ExtractHashtags(*post.Body); tags != nil {
			doc.Hashtags = tags
		}
	}
	return doc
}
