// Package search finds users and posts by substring. Postgres is the default
// backend; Elasticsearch can be switched on and falls back to Postgres.
package search

import (
	"context"
	"errors"
	"strings"

	"github.com/projecty/backend/internal/posts"
	"gorm.io/gorm"
)

// ResultLimit caps every search response
const ResultLimit = 20

// Search types accepted by the type parameter
const (
	TypeUsers = "users"
	TypePosts = "posts"
)

var ErrEmptyQuery = errors.New(`query parameter "q" is required`)

// UserHit is one user search result
type UserHit struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
	Bio         *string `json:"bio"`
}

// Searcher is implemented by every backend
type Searcher interface {
	Users(ctx context.Context, q string) ([]UserHit, error)
	Posts(ctx context.Context, q string) ([]posts.View, error)
}

// Run validates q and dispatches on kind. Anything other than "users"
// searches posts.
func Run(ctx context.Context, s Searcher, q, kind string) (any, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if kind == TypeUsers {
		return s.Users(ctx, q)
	}
	return s.Posts(ctx, q)
}

// PostgresSearcher matches case-insensitive substrings with LIKE
type PostgresSearcher struct {
	db *gorm.DB
}

func NewPostgresSearcher(db *gorm.DB) *PostgresSearcher {
	return &PostgresSearcher{db: db}
}

func (s *PostgresSearcher) Users(ctx context.Context, q string) ([]UserHit, error) {
	pattern := likePattern(q)
	out := []UserHit{}
	err := s.db.WithContext(ctx).Table("users").
		Select("users.id, users.username, COALESCE(profiles.display_name, users.username) AS display_name, profiles.avatar_url, profiles.bio").
		Joins("LEFT JOIN profiles ON profiles.user_id = users.id").
		Where(`LOWER(users.username) LIKE ? ESCAPE '\' OR LOWER(profiles.display_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("users.username ASC").
		Limit(ResultLimit).
		Scan(&out).Error
	return out, err
}

func (s *PostgresSearcher) Posts(ctx context.Context, q string) ([]posts.View, error) {
	pattern := likePattern(q)
	out := []posts.View{}
	err := posts.ViewQuery(s.db.WithContext(ctx)).
		Where(`LOWER(posts.body) LIKE ? ESCAPE '\' OR posts.id IN (
			SELECT post_hashtags.post_id FROM post_hashtags
			JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id
			WHERE LOWER(hashtags.name) LIKE ? ESCAPE '\')`, pattern, pattern).
		Order("COALESCE(post_counters.like_count, 0) DESC, posts.created_at DESC, posts.id DESC").
		Limit(ResultLimit).
		Scan(&out).Error
	return out, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern lowercases q and wraps it for a substring LIKE, escaping the
// LIKE metacharacters
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}

var (
	_ Searcher      = (*PostgresSearcher)(nil)
	_ Searcher      = (*ElasticSearcher)(nil)
	_ Searcher      = (*CachedSearcher)(nil)
	_ posts.Indexer = (*ElasticSearcher)(nil)
)
