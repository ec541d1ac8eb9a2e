package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/auth"
	apierrors "github.com/projecty/backend/internal/errors"
	"github.com/projecty/backend/internal/feed"
	"github.com/projecty/backend/internal/messaging"
	"github.com/projecty/backend/internal/metrics"
	"github.com/projecty/backend/internal/posts"
	"github.com/projecty/backend/internal/search"
	"github.com/projecty/backend/internal/social"
	"github.com/projecty/backend/internal/util"
)

// respondError maps a service error to its status. Unrecognised errors are
// logged and answered with a generic 500 carrying fallback.
func respondError(c *gin.Context, err error, fallback string) {
	if apiErr := classify(err); apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}
	metrics.RecordError("internal", c.FullPath())
	util.RespondInternalError(c, fallback, err)
}

func classify(err error) *apierrors.APIError {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return apierrors.Unauthorized(err.Error())

	case errors.Is(err, messaging.ErrNotParticipant), errors.Is(err, social.ErrBlocked):
		return apierrors.Forbidden(err.Error())

	case errors.Is(err, posts.ErrPostNotFound), errors.Is(err, posts.ErrOriginalPostNotFound):
		return apierrors.NotFound("post")
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, social.ErrUserNotFound),
		errors.Is(err, messaging.ErrUserNotFound):
		return apierrors.NotFound("user")

	case errors.Is(err, auth.ErrUserExists), errors.Is(err, posts.ErrAlreadyLiked),
		errors.Is(err, social.ErrAlreadyFollowing), errors.Is(err, social.ErrAlreadyBlocked):
		return apierrors.Conflict(err.Error())
	case util.IsUniqueViolation(err):
		return apierrors.Conflict("resource already exists")

	case errors.Is(err, auth.ErrTooFewInterests):
		return apierrors.ValidationError("interestIds", err.Error())
	case errors.Is(err, posts.ErrEmptyPost):
		return apierrors.ValidationError("content", err.Error())
	case errors.Is(err, posts.ErrEmptyComment):
		return apierrors.ValidationError("content", err.Error())
	case errors.Is(err, messaging.ErrEmptyMessage), errors.Is(err, messaging.ErrMessageTooLong):
		return apierrors.ValidationError("text", err.Error())
	case errors.Is(err, search.ErrEmptyQuery):
		return apierrors.ValidationError("q", err.Error())
	case errors.Is(err, feed.ErrInvalidCursor):
		return apierrors.ValidationError("cursor", err.Error())
	case errors.Is(err, auth.ErrUnknownInterest), errors.Is(err, social.ErrSelfFollow),
		errors.Is(err, social.ErrSelfBlock), errors.Is(err, messaging.ErrSelfMessage):
		return apierrors.BadRequest(err.Error())
	}
	return nil
}

// bindError answers a failed ShouldBind with a 400
func bindError(c *gin.Context, err error) {
	util.RespondWithAPIError(c, apierrors.BadRequest("invalid request body").WithDetails(err.Error()))
}
