// Package counters owns post_counters. Every like, comment and repost write
// goes through here inside the caller's transaction; nothing else (and no
// database trigger) touches the table.
package counters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/projecty/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column names one of the three counts
type Column string

const (
	Likes    Column = "like_count"
	Comments Column = "comment_count"
	Reposts  Column = "repost_count"
)

func (c Column) valid() bool {
	switch c {
	case Likes, Comments, Reposts:
		return true
	}
	return false
}

// Ensure creates a zeroed row for postID if none exists
func Ensure(tx *gorm.DB, postID string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostCounters{PostID: postID}).Error
}

// Increment adds one to col, creating the row first when missing
func Increment(tx *gorm.DB, postID string, col Column) error {
	return apply(tx, postID, col, gorm.Expr(string(col)+" + 1"))
}

// Decrement subtracts one from col, never going below zero
func Decrement(tx *gorm.DB, postID string, col Column) error {
	name := string(col)
	return apply(tx, postID, col, gorm.Expr(fmt.Sprintf("CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END", name, name)))
}

func apply(tx *gorm.DB, postID string, col Column, expr clause.Expr) error {
	if !col.valid() {
		return fmt.Errorf("unknown counter column %q", col)
	}
	if err := Ensure(tx, postID); err != nil {
		return err
	}
	return tx.Model(&models.PostCounters{}).
		Where("post_id = ?", postID).
		Update(string(col), expr).Error
}

// Get returns the counters for postID. A missing row reads as all zeros.
func Get(db *gorm.DB, postID string) (models.PostCounters, error) {
	var pc models.PostCounters
	err := db.Where("post_id = ?", postID).First(&pc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.PostCounters{PostID: postID}, nil
	}
	return pc, err
}

// Drift is one counters row whose cached values disagree with the source rows
type Drift struct {
	PostID       string
	LikeCount    int
	CommentCount int
	RepostCount  int
	Likes        int
	Comments     int
	Reposts      int
}

// Report summarizes a reconciliation run
type Report struct {
	Inserted  int64
	Corrected int
	Drift     []Drift
}

// Reconcile inserts missing counters rows and rewrites every row whose counts
// differ from COUNT(*) over post_likes, comments and reposts. With dryRun it
// only reports.
func Reconcile(ctx context.Context, db *gorm.DB, dryRun bool) (*Report, error) {
	report := &Report{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var missing []string
		if err := tx.Model(&models.Post{}).
			Joins("LEFT JOIN post_counters pc ON pc.post_id = posts.id").
			Where("pc.post_id IS NULL").
			Pluck("posts.id", &missing).Error; err != nil {
			return fmt.Errorf("find posts without counters: %w", err)
		}
		report.Inserted = int64(len(missing))
		if !dryRun {
			for _, id := range missing {
				if err := Ensure(tx, id); err != nil {
					return fmt.Errorf("insert counters for %s: %w", id, err)
				}
			}
		}

		if err := tx.Raw(`
			SELECT * FROM (
				SELECT pc.post_id,
					pc.like_count, pc.comment_count, pc.repost_count,
					(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = pc.post_id) AS likes,
					(SELECT COUNT(*) FROM comments c WHERE c.post_id = pc.post_id) AS comments,
					(SELECT COUNT(*) FROM reposts r WHERE r.original_post_id = pc.post_id) AS reposts
				FROM post_counters pc
			) t
			WHERE t.like_count <> t.likes OR t.comment_count <> t.comments OR t.repost_count <> t.reposts
			ORDER BY t.post_id`).Scan(&report.Drift).Error; err != nil {
			return fmt.Errorf("compute drift: %w", err)
		}
		if dryRun {
			return nil
		}

		for _, d := range report.Drift {
			if err := tx.Model(&models.PostCounters{}).
				Where("post_id = ?", d.PostID).
				Updates(map[string]interface{}{
					string(Likes):    d.Likes,
					string(Comments): d.Comments,
					string(Reposts):  d.Reposts,
					"updated_at":     time.Now().UTC(),
				}).Error; err != nil {
				return fmt.Errorf("correct counters for %s: %w", d.PostID, err)
			}
			report.Corrected++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
