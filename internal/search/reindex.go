package search

import (
	"context"
	"time"

	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reindexBatchSize = 200

// ReindexStats counts documents written by Reindex
type ReindexStats struct {
	Users  int
	Posts  int
	Failed int
}

// Reindex rebuilds both indices from Postgres. Individual document failures
// are counted and logged; a database error stops the run.
func (s *ElasticSearcher) Reindex(ctx context.Context) (ReindexStats, error) {
	var stats ReindexStats
	start := time.Now()

	if err := s.InitializeIndices(ctx); err != nil {
		return stats, err
	}

	var users []models.User
	err := s.db.WithContext(ctx).Preload("Profile").Order("id").
		FindInBatches(&users, reindexBatchSize, func(tx *gorm.DB, batch int) error {
			for i := range users {
				if err := s.IndexUser(ctx, &users[i]); err != nil {
					stats.Failed++
					logger.Log.Warn("Failed to reindex user", logger.WithUserID(users[i].ID), zap.Error(err))
					continue
				}
				stats.Users++
			}
			return ctx.Err()
		}).Error
	if err != nil {
		return stats, err
	}

	var batch []models.Post
	err = s.db.WithContext(ctx).Order("id").
		FindInBatches(&batch, reindexBatchSize, func(tx *gorm.DB, n int) error {
			for i := range batch {
				if err := s.IndexPost(ctx, &batch[i]); err != nil {
					stats.Failed++
					logger.Log.Warn("Failed to reindex post", logger.WithPostID(batch[i].ID), zap.Error(err))
					continue
				}
				stats.Posts++
			}
			return ctx.Err()
		}).Error
	if err != nil {
		return stats, err
	}

	logger.Log.Info("Search reindex completed",
		zap.Int("users", stats.Users),
		zap.Int("posts", stats.Posts),
		zap.Int("failed", stats.Failed),
		logger.WithDuration(time.Since(start)))
	return stats, nil
}
