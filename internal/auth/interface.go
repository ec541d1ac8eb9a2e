package auth

import (
	"context"

	"github.com/projecty/backend/internal/models"
)

// ServiceInterface is what the HTTP layer needs from authentication
type ServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Me(ctx context.Context, userID string) (*MeResponse, error)
	Interests(ctx context.Context) ([]models.Interest, error)
	CompleteOnboarding(ctx context.Context, userID string, interestIDs []uint) error
	ParseToken(tokenString string) (*Claims, error)
}

var _ ServiceInterface = (*Service)(nil)
