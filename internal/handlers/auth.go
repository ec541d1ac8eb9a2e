package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/auth"
	"github.com/projecty/backend/internal/cache"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/util"
	"go.uber.org/zap"
)

const interestsCacheKey = "interests:all"

// interestsCacheTTL bounds how stale the onboarding list can be after a
// reference data change
const interestsCacheTTL = 10 * time.Minute

// Register creates an account. A taken email or username is a 409.
// POST /api/v1/auth/register (also /auth/signup)
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "registration failed")
		return
	}

	h.indexUser(c, resp.User.ID)
	c.JSON(http.StatusCreated, resp)
}

// Login exchanges credentials for a token
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "login failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout is stateless; the client drops its token
// POST /api/v1/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated user and onboarding status
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Interests lists onboarding choices, cached in Redis when available
// GET /api/v1/auth/interests
func (h *Handlers) Interests(c *gin.Context) {
	interests, err := cache.Remember(c.Request.Context(), h.cache, "interests", interestsCacheKey, interestsCacheTTL,
		h.auth.Interests)
	if err != nil {
		respondError(c, err, "failed to load interests")
		return
	}
	if interests == nil {
		interests = []models.Interest{}
	}
	c.JSON(http.StatusOK, interests)
}

// CompleteOnboarding saves the user's interests (at least two)
// POST /api/v1/auth/onboarding
func (h *Handlers) CompleteOnboarding(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		InterestIDs []uint `json:"interestIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.auth.CompleteOnboarding(c.Request.Context(), userID, req.InterestIDs); err != nil {
		respondError(c, err, "failed to save interests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Onboarding complete", "hasCompletedOnboarding": true})
}

// indexUser pushes the user to the search index when one is configured.
// Failures are logged only.
func (h *Handlers) indexUser(c *gin.Context, userID string) {
	if h.userIndexer == nil || h.db == nil {
		return
	}
	var user models.User
	err := h.db.WithContext(c.Request.Context()).Preload("Profile").First(&user, "id = ?", userID).Error
	if err == nil {
		err = h.userIndexer.IndexUser(c.Request.Context(), &user)
	}
	if err != nil {
		logger.Log.Warn("Failed to index user", logger.WithUserID(userID), zap.Error(err))
	}
}
