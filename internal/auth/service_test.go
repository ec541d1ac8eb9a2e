package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *Service
	ctx     context.Context
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = testutil.NewSQLiteDB(suite.T())
	suite.service = NewService(suite.db, []byte("test_jwt_secret_key"), time.Hour)
	suite.ctx = context.Background()
}

func (suite *AuthServiceTestSuite) register(email, username string) *AuthResponse {
	resp, err := suite.service.Register(suite.ctx, RegisterRequest{
		Email:    email,
		Password: "password123",
		Username: username,
	})
	require.NoError(suite.T(), err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegisterCreatesUserAndProfile() {
	t := suite.T()
	resp := suite.register("Alice@Example.com", "alice")

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
	assert.False(t, resp.HasCompletedOnboarding)

	var user models.User
	require.NoError(t, suite.db.Where("id = ?", resp.User.ID).First(&user).Error)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password123", user.PasswordHash)

	var profile models.Profile
	require.NoError(t, suite.db.Where("user_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, "alice", profile.DisplayName)
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicate() {
	t := suite.T()
	suite.register("alice@example.com", "alice")

	_, err := suite.service.Register(suite.ctx, RegisterRequest{Email: "alice@example.com", Password: "password123", Username: "other"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = suite.service.Register(suite.ctx, RegisterRequest{Email: "other@example.com", Password: "password123", Username: "alice"})
	assert.ErrorIs(t, err, ErrUserExists)

	// the failed registration left no orphan profile behind
	var profiles int64
	suite.db.Model(&models.Profile{}).Count(&profiles)
	assert.Equal(t, int64(1), profiles)
}

func (suite *AuthServiceTestSuite) TestLogin() {
	t := suite.T()
	registered := suite.register("alice@example.com", "alice")

	resp, err := suite.service.Login(suite.ctx, LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.False(t, resp.HasCompletedOnboarding)

	_, err = suite.service.Login(suite.ctx, LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = suite.service.Login(suite.ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestOnboarding() {
	t := suite.T()
	resp := suite.register("alice@example.com", "alice")
	tech := testutil.InterestID(t, suite.db, "Tech")
	art := testutil.InterestID(t, suite.db, "Art")
	food := testutil.InterestID(t, suite.db, "Food")

	assert.ErrorIs(t, suite.service.CompleteOnboarding(suite.ctx, resp.User.ID, []uint{tech}), ErrTooFewInterests)
	assert.ErrorIs(t, suite.service.CompleteOnboarding(suite.ctx, resp.User.ID, []uint{tech, tech}), ErrTooFewInterests)
	assert.ErrorIs(t, suite.service.CompleteOnboarding(suite.ctx, resp.User.ID, []uint{tech, 9999}), ErrUnknownInterest)

	require.NoError(t, suite.service.CompleteOnboarding(suite.ctx, resp.User.ID, []uint{tech, art}))
	require.NoError(t, suite.service.CompleteOnboarding(suite.ctx, resp.User.ID, []uint{art, food}))

	var ids []uint
	suite.db.Model(&models.UserInterest{}).Where("user_id = ?", resp.User.ID).Order("interest_id").Pluck("interest_id", &ids)
	assert.ElementsMatch(t, []uint{art, food}, ids)

	login, err := suite.service.Login(suite.ctx, LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.True(t, login.HasCompletedOnboarding)

	me, err := suite.service.Me(suite.ctx, resp.User.ID)
	require.NoError(t, err)
	assert.True(t, me.HasCompletedOnboarding)
	assert.Equal(t, "alice", me.User.DisplayName)
}

func (suite *AuthServiceTestSuite) TestMeUnknownUser() {
	_, err := suite.service.Me(suite.ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(suite.T(), err, ErrUserNotFound)
}

func (suite *AuthServiceTestSuite) TestInterestsSorted() {
	t := suite.T()
	interests, err := suite.service.Interests(suite.ctx)
	require.NoError(t, err)
	require.Len(t, interests, len(models.DefaultInterests))
	assert.Equal(t, "Art", interests[0].Name)
}

func (suite *AuthServiceTestSuite) TestTokenRoundTrip() {
	t := suite.T()
	resp := suite.register("alice@example.com", "alice")

	claims, err := suite.service.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	other := NewService(suite.db, []byte("different"), time.Hour)
	_, err = other.ParseToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	suite.service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = suite.service.ParseToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(nil, []byte("secret"), time.Hour)
	token, _, err := svc.GenerateToken(&models.User{ID: "user-1", Username: "alice"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Middleware(svc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetString("user_id"), "username": c.GetString("username")})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, "Response body: %s", w.Body.String())
			if tt.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"id":"user-1"`)
			}
		})
	}
}

func TestMockServiceRecordsCalls(t *testing.T) {
	m := NewMockService()
	_, err := m.ParseToken("x")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 1, m.CallCount("ParseToken"))
}
