// Package handlers is the gin HTTP surface of the API. Handlers parse the
// request, call a domain service and map its sentinel errors to statuses.
package handlers

import (
	"context"

	"github.com/projecty/backend/internal/auth"
	"github.com/projecty/backend/internal/cache"
	"github.com/projecty/backend/internal/feed"
	"github.com/projecty/backend/internal/messaging"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/notifications"
	"github.com/projecty/backend/internal/posts"
	"github.com/projecty/backend/internal/realtime"
	"github.com/projecty/backend/internal/search"
	"github.com/projecty/backend/internal/social"
	"github.com/projecty/backend/internal/storage"
	"gorm.io/gorm"
)

// UserIndexer receives users whose searchable fields changed
type UserIndexer interface {
	IndexUser(ctx context.Context, user *models.User) error
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db            *gorm.DB
	auth          auth.ServiceInterface
	posts         *posts.Service
	feed          *feed.Composer
	social        *social.Service
	messaging     *messaging.Service
	notifications *notifications.Service
	search        search.Searcher
	uploader      storage.ImageUploader
	cache         *cache.RedisClient
	userIndexer   UserIndexer
}

// NewHandlers wires every domain service over db. notifier may be nil.
func NewHandlers(db *gorm.DB, authService auth.ServiceInterface, notifier realtime.Notifier) *Handlers {
	return &Handlers{
		db:            db,
		auth:          authService,
		posts:         posts.NewService(db, notifier),
		feed:          feed.NewComposer(db),
		social:        social.NewService(db, notifier),
		messaging:     messaging.NewService(db, notifier),
		notifications: notifications.NewService(db),
		search:        search.NewPostgresSearcher(db),
	}
}

// SetSearcher replaces the default Postgres searcher
func (h *Handlers) SetSearcher(s search.Searcher) {
	h.search = s
}

// SetIndexers enables search indexing of new posts and changed users
func (h *Handlers) SetIndexers(postIndexer posts.Indexer, userIndexer UserIndexer) {
	h.posts.SetIndexer(postIndexer)
	h.userIndexer = userIndexer
}

// SetUploader enables multipart image uploads
func (h *Handlers) SetUploader(u storage.ImageUploader) {
	h.uploader = u
}

// SetCache enables read-through caching of reference data
func (h *Handlers) SetCache(rc *cache.RedisClient) {
	h.cache = rc
}

// SetFeedComposer swaps the composer, used by tests to fix the shuffle
func (h *Handlers) SetFeedComposer(c *feed.Composer) {
	h.feed = c
}
