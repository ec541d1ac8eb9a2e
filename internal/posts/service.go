// Package posts creates posts and reposts and handles likes and comments.
// Counter and notification writes happen in the same transaction as the
// interaction; realtime pushes go out only after commit.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/projecty/backend/internal/counters"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/metrics"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/notifications"
	"github.com/projecty/backend/internal/realtime"
	"github.com/projecty/backend/internal/telemetry"
	"github.com/projecty/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPostNotFound         = errors.New("post not found")
	ErrOriginalPostNotFound = errors.New("original post not found")
	ErrEmptyPost            = errors.New("post content, image or original post id is required")
	ErrEmptyComment         = errors.New("comment content is required")
	ErrAlreadyLiked         = errors.New("already liked this post")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Indexer receives posts after they are committed. The Elasticsearch
// searcher implements it.
type Indexer interface {
	IndexPost(ctx context.Context, post *models.Post) error
}

// Service implements post creation and the like/comment interactions
type Service struct {
	db       *gorm.DB
	notifier realtime.Notifier
	indexer  Indexer
}

func NewService(db *gorm.DB, notifier realtime.Notifier) *Service {
	if notifier == nil {
		notifier = realtime.Nop{}
	}
	return &Service{db: db, notifier: notifier}
}

// SetIndexer enables search indexing of new posts
func (s *Service) SetIndexer(indexer Indexer) {
	s.indexer = indexer
}

// CreateInput carries a new post. Content may be nil only when
// OriginalPostID or ImageURL is set.
type CreateInput struct {
	Content        *string `json:"content"`
	ImageURL       *string `json:"image_url"`
	OriginalPostID *string `json:"original_post_id"`
}

// CreateResult is returned by Create
type CreateResult struct {
	PostID         string  `json:"postId"`
	OriginalPostID *string `json:"originalPostId"`
	IsRepost       bool    `json:"isRepost"`
	Post           *View   `json:"post"`
}

// Create inserts a post with a zeroed counters row and links its hashtags.
// With OriginalPostID it also records the repost, bumps the original's
// repost count and notifies the original author.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*CreateResult, error) {
	content := normalize(in.Content)
	imageURL := normalize(in.ImageURL)
	originalID := normalize(in.OriginalPostID)
	if content == nil && imageURL == nil && originalID == nil {
		return nil, ErrEmptyPost
	}
	if originalID != nil && !util.IsUUID(*originalID) {
		return nil, ErrOriginalPostNotFound
	}

	post := &models.Post{
		UserID:         userID,
		Body:           content,
		ImageURL:       imageURL,
		OriginalPostID: originalID,
	}
	var original models.Post
	var actor models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "username").First(&actor, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("load author: %w", err)
		}

		if originalID != nil {
			if err := tx.First(&original, "id = ?", *originalID).Error; err != nil {
				if util.IsNotFound(err) {
					return ErrOriginalPostNotFound
				}
				return err
			}
		}

		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if err := counters.Ensure(tx, post.ID); err != nil {
			return err
		}

		if content != nil {
			if err := linkHashtags(tx, post.ID, util.ExtractHashtags(*content)); err != nil {
				return err
			}
		}

		if originalID == nil {
			return nil
		}

		repost := &models.Repost{
			UserID:         userID,
			OriginalPostID: original.ID,
			PostID:         post.ID,
			Quote:          content,
		}
		if err := tx.Create(repost).Error; err != nil {
			return err
		}
		if err := counters.Increment(tx, original.ID, counters.Reposts); err != nil {
			return err
		}
		_, err := notifications.Record(tx, notifications.Event{
			RecipientID:   original.UserID,
			TriggerUserID: userID,
			Type:          models.NotificationRepost,
			ContentID:     &original.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	isRepost := originalID != nil
	if isRepost {
		metrics.RecordInteraction(realtime.EventRepost, "add")
		if original.UserID != userID {
			realtime.Deliver(ctx, s.notifier, realtime.EventRepost, realtime.UserRoom(original.UserID), realtime.Payload{
				Type:        realtime.EventRepost,
				PostID:      original.ID,
				TriggeredBy: userID,
				Message:     fmt.Sprintf("%s %s", actor.Username, notifications.Message(models.NotificationRepost)),
			})
		}
	}

	if s.indexer != nil {
		if err := s.indexer.IndexPost(ctx, post); err != nil {
			logger.Log.Warn("Failed to index post", logger.WithPostID(post.ID), zap.Error(err))
		}
	}

	view, err := s.Get(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Post created",
		logger.WithUserID(userID),
		logger.WithPostID(post.ID),
		zap.Bool("repost", isRepost))

	return &CreateResult{
		PostID:         post.ID,
		OriginalPostID: originalID,
		IsRepost:       isRepost,
		Post:           view,
	}, nil
}

// linkHashtags creates missing hashtags, resolving interest_id by name, and
// links them to postID
func linkHashtags(tx *gorm.DB, postID string, tags []string) error {
	for _, tag := range tags {
		name := strings.ToLower(tag)

		var interest models.Interest
		var interestID *uint
		err := tx.Where("LOWER(name) = ?", name).Limit(1).Find(&interest).Error
		if err != nil {
			return err
		}
		if interest.ID != 0 {
			interestID = &interest.ID
		}

		if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(&models.Hashtag{Name: name, InterestID: interestID}).Error; err != nil {
			return err
		}

		var hashtag models.Hashtag
		if err := tx.Where("name = ?", name).First(&hashtag).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostHashtag{PostID: postID, HashtagID: hashtag.ID}).Error; err != nil {
			return err
		}
	}
	return nil
}

// LikeResult reports the state after a toggle
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// ToggleLike unlikes when a like exists, otherwise likes. A concurrent
// duplicate like surfaces as ErrAlreadyLiked.
func (s *Service) ToggleLike(ctx context.Context, userID, postID string) (*LikeResult, error) {
	if !util.IsUUID(postID) {
		return nil, ErrPostNotFound
	}

	ctx, span := telemetry.TraceInteraction(ctx, realtime.EventLike, userID, postID)
	var spanErr error
	defer func() { telemetry.EndSpan(span, spanErr) }()

	var post models.Post
	var actor models.User
	result := &LikeResult{}

	spanErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "user_id").First(&post, "id = ?", postID).Error; err != nil {
			if util.IsNotFound(err) {
				return ErrPostNotFound
			}
			return err
		}

		del := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			result.Liked = false
			return counters.Decrement(tx, postID, counters.Likes)
		}

		if err := tx.Create(&models.PostLike{UserID: userID, PostID: postID}).Error; err != nil {
			if util.IsUniqueViolation(err) {
				return ErrAlreadyLiked
			}
			return err
		}
		result.Liked = true
		if err := counters.Increment(tx, postID, counters.Likes); err != nil {
			return err
		}
		if err := tx.Select("id", "username").First(&actor, "id = ?", userID).Error; err != nil {
			return err
		}
		_, err := notifications.Record(tx, notifications.Event{
			RecipientID:   post.UserID,
			TriggerUserID: userID,
			Type:          models.NotificationLike,
			ContentID:     &post.ID,
		})
		return err
	})
	if spanErr != nil {
		return nil, spanErr
	}

	pc, err := counters.Get(s.db.WithContext(ctx), postID)
	if err != nil {
		return nil, err
	}
	result.LikeCount = pc.LikeCount

	if result.Liked {
		metrics.RecordInteraction(realtime.EventLike, "add")
		if post.UserID != userID {
			realtime.Deliver(ctx, s.notifier, realtime.EventLike, realtime.UserRoom(post.UserID), realtime.Payload{
				Type:        realtime.EventLike,
				PostID:      postID,
				TriggeredBy: userID,
				Message:     fmt.Sprintf("%s %s", actor.Username, notifications.Message(models.NotificationLike)),
			})
		}
	} else {
		metrics.RecordInteraction(realtime.EventLike, "remove")
	}
	return result, nil
}

// AddComment stores a comment, bumps comment_count and notifies the post
// author unless they commented on their own post
func (s *Service) AddComment(ctx context.Context, userID, postID, content string) (*CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}
	if !util.IsUUID(postID) {
		return nil, ErrPostNotFound
	}

	var post models.Post
	var actor models.User
	comment := &models.Comment{PostID: postID, UserID: userID, Content: content}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "user_id").First(&post, "id = ?", postID).Error; err != nil {
			if util.IsNotFound(err) {
				return ErrPostNotFound
			}
			return err
		}
		if err := tx.Select("id", "username").First(&actor, "id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if err := counters.Increment(tx, postID, counters.Comments); err != nil {
			return err
		}
		_, err := notifications.Record(tx, notifications.Event{
			RecipientID:   post.UserID,
			TriggerUserID: userID,
			Type:          models.NotificationComment,
			ContentID:     &post.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordInteraction(realtime.EventComment, "add")
	if post.UserID != userID {
		realtime.Deliver(ctx, s.notifier, realtime.EventComment, realtime.UserRoom(post.UserID), realtime.Payload{
			Type:        realtime.EventComment,
			PostID:      postID,
			TriggeredBy: userID,
			Message:     fmt.Sprintf("%s %s", actor.Username, notifications.Message(models.NotificationComment)),
		})
	}

	return &CommentView{
		ID:        comment.ID,
		PostID:    postID,
		UserID:    userID,
		Username:  actor.Username,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}, nil
}

// ListComments returns a post's comments oldest first
func (s *Service) ListComments(ctx context.Context, postID string) ([]CommentView, error) {
	if !util.IsUUID(postID) {
		return nil, ErrPostNotFound
	}
	db := s.db.WithContext(ctx)
	if err := s.requirePost(db, postID); err != nil {
		return nil, err
	}

	comments := []CommentView{}
	err := db.Table("comments").
		Select("comments.id, comments.post_id, comments.user_id, users.username, comments.content, comments.created_at").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.post_id = ?", postID).
		Order("comments.created_at ASC, comments.id ASC").
		Scan(&comments).Error
	return comments, err
}

// List returns recent posts from everyone
func (s *Service) List(ctx context.Context, limit, offset int) ([]View, error) {
	return s.list(ctx, "", limit, offset)
}

// ListByUser returns recent posts by one author
func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]View, error) {
	if !util.IsUUID(userID) {
		return []View{}, nil
	}
	return s.list(ctx, userID, limit, offset)
}

func (s *Service) list(ctx context.Context, userID string, limit, offset int) ([]View, error) {
	limit = util.ClampInt(limit, 1, MaxPageSize)
	if offset < 0 {
		offset = 0
	}

	q := ViewQuery(s.db.WithContext(ctx))
	if userID != "" {
		q = q.Where("posts.user_id = ?", userID)
	}

	views := []View{}
	err := q.Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&views).Error
	return views, err
}

// Get returns one post
func (s *Service) Get(ctx context.Context, postID string) (*View, error) {
	if !util.IsUUID(postID) {
		return nil, ErrPostNotFound
	}
	var views []View
	if err := ViewQuery(s.db.WithContext(ctx)).Where("posts.id = ?", postID).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrPostNotFound
	}
	return &views[0], nil
}

func (s *Service) requirePost(db *gorm.DB, postID string) error {
	var count int64
	if err := db.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrPostNotFound
	}
	return nil
}

func normalize(s *string) *string {
	if util.IsBlank(s) {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
