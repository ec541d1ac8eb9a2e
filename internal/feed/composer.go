// Package feed composes the home feed: mostly recent posts from followed
// authors, topped up with popular posts matching the viewer's interests.
package feed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/metrics"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/posts"
	"github.com/projecty/backend/internal/telemetry"
	"github.com/projecty/backend/internal/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	SourceFollowed = "Followed"
	SourceInterest = "Interest"
)

const (
	followedAuthors = `posts.user_id IN (SELECT following_id FROM follows WHERE follower_id = ?)`
	notFollowed     = `posts.user_id NOT IN (SELECT following_id FROM follows WHERE follower_id = ?)`
	notBlocked      = `posts.user_id NOT IN (SELECT blocked_id FROM user_blocks WHERE blocker_id = ?)`
	interestMatch   = `posts.id IN (
		SELECT post_hashtags.post_id FROM post_hashtags
		JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id
		JOIN user_interests ON user_interests.interest_id = hashtags.interest_id
		WHERE user_interests.user_id = ?)`
)

// Page is one page of the hybrid feed
type Page struct {
	Posts []posts.View `json:"posts"`
	// NextCursor is the created_at of the last returned post
	NextCursor *time.Time `json:"nextCursor"`
	// NextCursorToken also carries the post id to break created_at ties
	NextCursorToken *string `json:"nextCursorToken"`
	HasMore         bool    `json:"hasMore"`
	ColdStart       bool    `json:"coldStart"`
}

// Composer builds feed pages
type Composer struct {
	db   *gorm.DB
	intn func(n int) int
}

func NewComposer(db *gorm.DB) *Composer {
	return &Composer{db: db, intn: rand.IntN}
}

// WithRand replaces the shuffle's source of randomness. intn(n) must return
// a value in [0, n).
func (c *Composer) WithRand(intn func(n int) int) *Composer {
	c.intn = intn
	return c
}

// SplitLimit returns how many slots go to followed authors and to interests
func SplitLimit(limit int) (friends, interests int) {
	friends = limit * 8 / 10
	return friends, limit - friends
}

// Hybrid returns the viewer's feed before cursor. A viewer who follows
// nobody gets interest matches by recency; otherwise both pools are queried
// concurrently, concatenated and shuffled.
func (c *Composer) Hybrid(ctx context.Context, viewerID string, cursor Cursor, limit int) (*Page, error) {
	start := time.Now()
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = util.ClampInt(limit, 1, MaxLimit)

	var follows int64
	if err := c.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", viewerID).Count(&follows).Error; err != nil {
		return nil, fmt.Errorf("count follows: %w", err)
	}
	coldStart := follows == 0

	ctx, span := telemetry.TraceFeed(ctx, telemetry.FeedEventAttrs{ViewerID: viewerID, Limit: limit, ColdStart: coldStart})
	page, friends, interests, err := c.compose(ctx, viewerID, cursor, limit, coldStart)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	feedType := "hybrid"
	if coldStart {
		feedType = "cold_start"
	}
	metrics.RecordFeedGeneration(feedType, time.Since(start), friends, interests)
	logger.Log.Debug("Feed composed",
		logger.WithUserID(viewerID),
		zap.String("type", feedType),
		zap.Int("friends", friends),
		zap.Int("interests", interests),
		logger.WithDuration(time.Since(start)))

	return page, nil
}

func (c *Composer) compose(ctx context.Context, viewerID string, cursor Cursor, limit int, coldStart bool) (*Page, int, int, error) {
	var items []posts.View
	var friends, interests int

	if coldStart {
		pool, err := c.interestPool(ctx, viewerID, cursor, limit, true)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("cold start pool: %w", err)
		}
		items, interests = pool, len(pool)
	} else {
		friendsLimit, interestsLimit := SplitLimit(limit)
		var friendPool, interestPool []posts.View

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			friendPool, err = c.followedPool(gctx, viewerID, cursor, friendsLimit)
			if err != nil {
				return fmt.Errorf("followed pool: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			interestPool, err = c.interestPool(gctx, viewerID, cursor, interestsLimit, false)
			if err != nil {
				return fmt.Errorf("interest pool: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, 0, 0, err
		}

		friends, interests = len(friendPool), len(interestPool)
		items = make([]posts.View, 0, friends+interests)
		items = append(items, friendPool...)
		items = append(items, interestPool...)
		Shuffle(items, c.intn)
	}

	if items == nil {
		items = []posts.View{}
	}
	page := &Page{
		Posts:     items,
		HasMore:   len(items) == limit,
		ColdStart: coldStart,
	}
	if n := len(items); n > 0 {
		last := items[n-1]
		at := last.CreatedAt
		token := Cursor{At: last.CreatedAt, PostID: last.ID}.Token()
		page.NextCursor = &at
		page.NextCursorToken = &token
	}
	return page, friends, interests, nil
}

func (c *Composer) followedPool(ctx context.Context, viewerID string, cursor Cursor, limit int) ([]posts.View, error) {
	out := []posts.View{}
	if limit <= 0 {
		return out, nil
	}
	q := posts.ViewQuery(c.db.WithContext(ctx)).
		Where(followedAuthors, viewerID).
		Where(notBlocked, viewerID)
	err := before(q, cursor).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Scan(&out).Error
	for i := range out {
		out[i].Source = SourceFollowed
	}
	return out, err
}

// interestPool selects posts whose hashtags map to the viewer's interests.
// Cold start orders by recency; otherwise followed authors are excluded and
// popular posts come first.
func (c *Composer) interestPool(ctx context.Context, viewerID string, cursor Cursor, limit int, coldStart bool) ([]posts.View, error) {
	out := []posts.View{}
	if limit <= 0 {
		return out, nil
	}
	q := posts.ViewQuery(c.db.WithContext(ctx)).
		Where(interestMatch, viewerID).
		Where(notBlocked, viewerID)
	q = before(q, cursor)
	if coldStart {
		q = q.Order("posts.created_at DESC, posts.id DESC")
	} else {
		q = q.Where(notFollowed, viewerID).
			Order("COALESCE(post_counters.like_count, 0) DESC, posts.created_at DESC, posts.id DESC")
	}
	err := q.Limit(limit).Scan(&out).Error
	for i := range out {
		out[i].Source = SourceInterest
	}
	return out, err
}

func before(q *gorm.DB, cursor Cursor) *gorm.DB {
	if cursor.PostID == "" {
		return q.Where("posts.created_at < ?", cursor.At)
	}
	return q.Where("(posts.created_at < ? OR (posts.created_at = ? AND posts.id < ?))", cursor.At, cursor.At, cursor.PostID)
}

// Shuffle is Fisher-Yates: for i from the last index down to 1, swap i with
// intn(i+1)
func Shuffle[T any](items []T, intn func(n int) int) {
	for i := len(items) - 1; i > 0; i-- {
		j := intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
