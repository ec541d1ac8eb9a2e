// Package repository holds the user and social-graph queries shared by the
// profile, follow and messaging services.
package repository

import (
	"context"
	"errors"

	"github.com/projecty/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidInput = errors.New("invalid input")
)

// UserRepository handles the database operations for users and their edges
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.Profile, error)

	GetProfileSnapshot(ctx context.Context, viewerID, targetID string) (*ProfileSnapshot, error)
	GetFollowerCount(ctx context.Context, userID string) (int64, error)

	CreateFollow(ctx context.Context, followerID, followingID string) error
	DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error)

	CreateBlock(ctx context.Context, blockerID, blockedID string) error
	DeleteBlock(ctx context.Context, blockerID, blockedID string) (bool, error)
	IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error)
}

// ProfileSnapshot is a profile with its follow counts and the viewer's
// relationship flags, all read by one statement
type ProfileSnapshot struct {
	ID             string
	Username       string
	DisplayName    string
	Bio            *string
	AvatarURL      *string
	HeaderURL      *string
	FollowersCount int64
	FollowingCount int64
	IsFollowing    bool
	IsFollowedBy   bool
	IsBlocked      bool
}

// ProfileUpdate changes only the non-nil fields
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
	HeaderURL   *string
}

func (u ProfileUpdate) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if u.DisplayName != nil {
		cols["display_name"] = *u.DisplayName
	}
	if u.Bio != nil {
		cols["bio"] = *u.Bio
	}
	if u.AvatarURL != nil {
		cols["avatar_url"] = *u.AvatarURL
	}
	if u.HeaderURL != nil {
		cols["header_url"] = *u.HeaderURL
	}
	return cols
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a repository over db, which may be a transaction
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetUser loads a user with its profile
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile").Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername is case-insensitive
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

// UpdateProfile applies update and returns the stored profile
func (r *userRepository) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.Profile, error) {
	db := r.db.WithContext(ctx)
	if cols := update.columns(); len(cols) > 0 {
		res := db.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}

	var profile models.Profile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &profile, err
}

// GetProfileSnapshot loads targetID as seen by viewerID. The relationship
// flags are false for an anonymous viewer or one looking at themselves.
func (r *userRepository) GetProfileSnapshot(ctx context.Context, viewerID, targetID string) (*ProfileSnapshot, error) {
	relation := "FALSE AS is_following, FALSE AS is_followed_by, FALSE AS is_blocked"
	var args []interface{}
	if viewerID != "" && viewerID != targetID {
		relation = "EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.following_id = users.id) AS is_following, " +
			"EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = users.id AND f.following_id = ?) AS is_followed_by, " +
			"EXISTS (SELECT 1 FROM user_blocks b WHERE b.blocker_id = ? AND b.blocked_id = users.id) AS is_blocked"
		args = append(args, viewerID, viewerID, viewerID)
	}

	var rows []ProfileSnapshot
	err := r.db.WithContext(ctx).Table("users").
		Select("users.id, users.username, COALESCE(profiles.display_name, users.username) AS display_name, "+
			"profiles.bio, profiles.avatar_url, profiles.header_url, "+
			"(SELECT COUNT(*) FROM follows WHERE follows.following_id = users.id) AS followers_count, "+
			"(SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id) AS following_count, "+
			relation, args...).
		Joins("LEFT JOIN profiles ON profiles.user_id = users.id").
		Where("users.id = ?", targetID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrUserNotFound
	}
	return &rows[0], nil
}

func (r *userRepository) GetFollowerCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("following_id = ?", userID).Count(&count).Error
	return count, err
}

// CreateFollow inserts the edge. A duplicate is returned as the driver's
// unique violation for the caller to translate.
func (r *userRepository) CreateFollow(ctx context.Context, followerID, followingID string) error {
	if followerID == "" || followingID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
}

// DeleteFollow reports whether an edge was removed
func (r *userRepository) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}

func (r *userRepository) CreateBlock(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == "" || blockedID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(&models.UserBlock{BlockerID: blockerID, BlockedID: blockedID}).Error
}

func (r *userRepository) DeleteBlock(ctx context.Context, blockerID, blockedID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.UserBlock{})
	return res.RowsAffected > 0, res.Error
}

func (r *userRepository) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserBlock{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}
