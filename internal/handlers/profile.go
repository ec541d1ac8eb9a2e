package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/social"
	"github.com/projecty/backend/internal/storage"
	"github.com/projecty/backend/internal/util"
)

// GetProfile returns a profile with the viewer's relationship to it
// GET /api/v1/profile/:userId
func (h *Handlers) GetProfile(c *gin.Context) {
	viewerID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	profile, err := h.social.Profile(c.Request.Context(), viewerID, c.Param("userId"))
	if err != nil {
		respondError(c, err, "failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile applies the non-nil fields. A multipart "avatar" file is
// uploaded and overrides avatarUrl.
// PUT /api/v1/profile
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var in social.UpdateProfileInput
	if isMultipart(c) {
		in.DisplayName = formValue(c, "displayName")
		in.Bio = formValue(c, "bio")
		in.AvatarURL = formValue(c, "avatarUrl")
		in.HeaderURL = formValue(c, "headerUrl")

		url, err := h.uploadImage(c, userID, "avatar", storage.KindAvatar)
		if err != nil {
			return
		}
		if url != nil {
			in.AvatarURL = url
		}
	} else if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	profile, err := h.social.UpdateProfile(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err, "failed to update profile")
		return
	}

	h.indexUser(c, userID)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Profile updated successfully",
		"avatarUrl": profile.AvatarURL,
		"profile":   profile,
	})
}

// ToggleFollow follows or unfollows :userId
// POST /api/v1/users/:userId/follow
func (h *Handlers) ToggleFollow(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result, err := h.social.ToggleFollow(c.Request.Context(), userID, c.Param("userId"))
	if err != nil {
		respondError(c, err, "failed to toggle follow")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ToggleBlock blocks or unblocks :userId
// POST /api/v1/users/:userId/block
func (h *Handlers) ToggleBlock(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result, err := h.social.ToggleBlock(c.Request.Context(), userID, c.Param("userId"))
	if err != nil {
		respondError(c, err, "failed to toggle block")
		return
	}
	c.JSON(http.StatusOK, result)
}

// formValue returns a pointer to a present form field, nil when absent
func formValue(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	return nil
}
