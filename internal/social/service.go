// Package social serves profiles and the follow and block toggles.
package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/metrics"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/notifications"
	"github.com/projecty/backend/internal/realtime"
	"github.com/projecty/backend/internal/repository"
	"github.com/projecty/backend/internal/telemetry"
	"github.com/projecty/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSelfFollow       = errors.New("you cannot follow yourself")
	ErrSelfBlock        = errors.New("you cannot block yourself")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrAlreadyBlocked   = errors.New("already blocked this user")
	ErrBlocked          = errors.New("this user has blocked you")
)

// Relationship statuses, in precedence order
const (
	StatusFollowing  = "Following"
	StatusFollowBack = "Follow Back"
	StatusBlocked    = "Blocked"
	StatusFollow     = "Follow"
)

// RelationshipStatus picks the label shown on a profile
func RelationshipStatus(isFollowing, isFollowedBy, isBlocked bool) string {
	switch {
	case isFollowing:
		return StatusFollowing
	case isFollowedBy:
		return StatusFollowBack
	case isBlocked:
		return StatusBlocked
	default:
		return StatusFollow
	}
}

// Profile is a user's public profile as seen by a viewer
type Profile struct {
	ID                 string  `json:"id"`
	Username           string  `json:"username"`
	DisplayName        string  `json:"displayName"`
	Bio                *string `json:"bio"`
	AvatarURL          *string `json:"avatarUrl"`
	HeaderURL          *string `json:"headerUrl"`
	FollowersCount     int64   `json:"followersCount"`
	FollowingCount     int64   `json:"followingCount"`
	IsFollowing        bool    `json:"isFollowing"`
	IsFollowedBy       bool    `json:"isFollowedBy"`
	IsBlocked          bool    `json:"isBlocked"`
	RelationshipStatus string  `json:"relationshipStatus"`
}

// UpdateProfileInput leaves nil fields unchanged
type UpdateProfileInput struct {
	DisplayName *string `json:"displayName" binding:"omitempty,min=1,max=50"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL   *string `json:"avatarUrl" binding:"omitempty,url"`
	HeaderURL   *string `json:"headerUrl" binding:"omitempty,url"`
}

// Service implements profiles and the social graph
type Service struct {
	db       *gorm.DB
	users    repository.UserRepository
	notifier realtime.Notifier
}

func NewService(db *gorm.DB, notifier realtime.Notifier) *Service {
	if notifier == nil {
		notifier = realtime.Nop{}
	}
	return &Service{db: db, users: repository.NewUserRepository(db), notifier: notifier}
}

// Profile returns targetID's profile with the relationship to viewerID
func (s *Service) Profile(ctx context.Context, viewerID, targetID string) (*Profile, error) {
	if !util.IsUUID(targetID) {
		return nil, ErrUserNotFound
	}

	snap, err := s.users.GetProfileSnapshot(ctx, viewerID, targetID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Profile{
		ID:                 snap.ID,
		Username:           snap.Username,
		DisplayName:        snap.DisplayName,
		Bio:                snap.Bio,
		AvatarURL:          snap.AvatarURL,
		HeaderURL:          snap.HeaderURL,
		FollowersCount:     snap.FollowersCount,
		FollowingCount:     snap.FollowingCount,
		IsFollowing:        snap.IsFollowing,
		IsFollowedBy:       snap.IsFollowedBy,
		IsBlocked:          snap.IsBlocked,
		RelationshipStatus: RelationshipStatus(snap.IsFollowing, snap.IsFollowedBy, snap.IsBlocked),
	}, nil
}

// UpdateProfile applies in and returns the caller's refreshed profile
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*Profile, error) {
	_, err := s.users.UpdateProfile(ctx, userID, repository.ProfileUpdate{
		DisplayName: in.DisplayName,
		Bio:         in.Bio,
		AvatarURL:   in.AvatarURL,
		HeaderURL:   in.HeaderURL,
	})
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID, userID)
}

// FollowResult reports the state after a toggle
type FollowResult struct {
	Following      bool  `json:"following"`
	FollowersCount int64 `json:"followersCount"`
}

// ToggleFollow unfollows when the edge exists, otherwise follows and
// notifies the target
func (s *Service) ToggleFollow(ctx context.Context, followerID, targetID string) (*FollowResult, error) {
	if followerID == targetID {
		return nil, ErrSelfFollow
	}
	if !util.IsUUID(targetID) {
		return nil, ErrUserNotFound
	}

	ctx, span := telemetry.TraceInteraction(ctx, realtime.EventFollow, followerID, targetID)
	var spanErr error
	defer func() { telemetry.EndSpan(span, spanErr) }()

	result := &FollowResult{}
	var actor models.User

	spanErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)

		exists, err := users.Exists(ctx, targetID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		removed, err := users.DeleteFollow(ctx, followerID, targetID)
		if err != nil {
			return err
		}
		if removed {
			result.Following = false
			return nil
		}

		blocked, err := users.IsBlocked(ctx, targetID, followerID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlocked
		}

		if err := users.CreateFollow(ctx, followerID, targetID); err != nil {
			if util.IsUniqueViolation(err) {
				return ErrAlreadyFollowing
			}
			return err
		}
		result.Following = true

		if err := tx.Select("id", "username").First(&actor, "id = ?", followerID).Error; err != nil {
			return fmt.Errorf("load follower: %w", err)
		}
		_, err = notifications.Record(tx, notifications.Event{
			RecipientID:   targetID,
			TriggerUserID: followerID,
			Type:          models.NotificationFollow,
		})
		return err
	})
	if spanErr != nil {
		return nil, spanErr
	}

	count, err := s.users.GetFollowerCount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	result.FollowersCount = count

	if result.Following {
		metrics.RecordInteraction(realtime.EventFollow, "add")
		realtime.Deliver(ctx, s.notifier, realtime.EventFollow, realtime.UserRoom(targetID), realtime.Payload{
			Type:        realtime.EventFollow,
			TriggeredBy: followerID,
			Message:     fmt.Sprintf("%s %s", actor.Username, notifications.Message(models.NotificationFollow)),
		})
	} else {
		metrics.RecordInteraction(realtime.EventFollow, "remove")
	}

	logger.Log.Info("Follow toggled",
		logger.WithUserID(followerID),
		zap.String("target_id", targetID),
		zap.Bool("following", result.Following))
	return result, nil
}

// BlockResult reports the state after a toggle
type BlockResult struct {
	Blocked bool `json:"blocked"`
}

// ToggleBlock unblocks when a block exists. Blocking removes follow edges in
// both directions.
func (s *Service) ToggleBlock(ctx context.Context, blockerID, targetID string) (*BlockResult, error) {
	if blockerID == targetID {
		return nil, ErrSelfBlock
	}
	if !util.IsUUID(targetID) {
		return nil, ErrUserNotFound
	}

	result := &BlockResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)

		exists, err := users.Exists(ctx, targetID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		removed, err := users.DeleteBlock(ctx, blockerID, targetID)
		if err != nil {
			return err
		}
		if removed {
			return nil
		}

		if err := users.CreateBlock(ctx, blockerID, targetID); err != nil {
			if util.IsUniqueViolation(err) {
				return ErrAlreadyBlocked
			}
			return err
		}
		result.Blocked = true

		if _, err := users.DeleteFollow(ctx, blockerID, targetID); err != nil {
			return err
		}
		_, err = users.DeleteFollow(ctx, targetID, blockerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Block toggled",
		logger.WithUserID(blockerID),
		zap.String("target_id", targetID),
		zap.Bool("blocked", result.Blocked))
	return result, nil
}
