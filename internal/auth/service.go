package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinInterests is the smallest onboarding selection accepted
const MinInterests = 2

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email or username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTooFewInterests    = errors.New("please select at least 2 interests")
	ErrUnknownInterest    = errors.New("unknown interest")
)

// Service registers users, checks passwords and issues bearer tokens
type Service struct {
	db        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// Claims is the JWT payload
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserSummary is the user object embedded in auth responses
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User                   UserSummary `json:"user"`
	Token                  string      `json:"token"`
	ExpiresAt              time.Time   `json:"expiresAt"`
	HasCompletedOnboarding bool        `json:"hasCompletedOnboarding"`
}

// MeResponse describes the current user
type MeResponse struct {
	User struct {
		ID          string  `json:"id"`
		Username    string  `json:"username"`
		Email       string  `json:"email"`
		DisplayName string  `json:"displayName"`
		AvatarURL   *string `json:"avatarUrl"`
	} `json:"user"`
	HasCompletedOnboarding bool `json:"hasCompletedOnboarding"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Username string `json:"username" binding:"required,min=3,max=30"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// NewService creates a new authentication service
func NewService(db *gorm.DB, jwtSecret []byte, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	return &Service{
		db:        db,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Register creates the user and its profile in one transaction
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{UserID: user.ID, DisplayName: user.Username}).Error
	})
	if util.IsUniqueViolation(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID), zap.String("username", user.Username))
	return s.authResponse(user, false)
}

// Login checks the password and issues a token
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	onboarded, err := s.hasCompletedOnboarding(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.authResponse(&user, onboarded)
}

// Me returns the current user with onboarding status
func (s *Service) Me(ctx context.Context, userID string) (*MeResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	onboarded, err := s.hasCompletedOnboarding(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &MeResponse{HasCompletedOnboarding: onboarded}
	resp.User.ID = user.ID
	resp.User.Username = user.Username
	resp.User.Email = user.Email
	resp.User.DisplayName = user.Username
	if user.Profile != nil {
		resp.User.DisplayName = user.Profile.DisplayName
		resp.User.AvatarURL = user.Profile.AvatarURL
	}
	return resp, nil
}

// Interests lists every selectable interest
func (s *Service) Interests(ctx context.Context) ([]models.Interest, error) {
	var interests []models.Interest
	err := s.db.WithContext(ctx).Order("name").Find(&interests).Error
	return interests, err
}

// CompleteOnboarding replaces the user's interests with interestIDs
func (s *Service) CompleteOnboarding(ctx context.Context, userID string, interestIDs []uint) error {
	ids := dedupe(interestIDs)
	if len(ids) < MinInterests {
		return ErrTooFewInterests
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var known int64
		if err := tx.Model(&models.Interest{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
			return err
		}
		if int(known) != len(ids) {
			return ErrUnknownInterest
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.UserInterest{}).Error; err != nil {
			return err
		}
		rows := make([]models.UserInterest, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, models.UserInterest{UserID: userID, InterestID: id})
		}
		return tx.Create(&rows).Error
	})
}

// GenerateToken signs a token for user
func (s *Service) GenerateToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates signature and expiry and returns the claims
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) authResponse(user *models.User, onboarded bool) (*AuthResponse, error) {
	token, expiresAt, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:                   UserSummary{ID: user.ID, Username: user.Username},
		Token:                  token,
		ExpiresAt:              expiresAt,
		HasCompletedOnboarding: onboarded,
	}, nil
}

func (s *Service) hasCompletedOnboarding(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.UserInterest{}).Where("user_id = ?", userID).Count(&n).Error
	return n > 0, err
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
