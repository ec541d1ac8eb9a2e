package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/errors"
	"github.com/projecty/backend/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError logs apiErr (warn for 4xx, error for 5xx) and writes it
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("path", c.FullPath()),
		zap.Int("status", apiErr.Status),
	}
	if apiErr.Field != "" {
		fields = append(fields, zap.String("field", apiErr.Field))
	}
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error", fields...)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error", fields...)
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

func RespondUnauthorized(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.Unauthorized(message))
}

func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.BadRequest(message))
}

func RespondForbidden(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.Forbidden(message))
}

func RespondConflict(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.Conflict(message))
}

func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}

// RespondInternalError answers 500 with a generic message and logs err
// server-side only.
func RespondInternalError(c *gin.Context, message string, err error) {
	if err != nil {
		logger.ErrorWithFields(message, err, zap.String("path", c.FullPath()))
	}
	RespondWithAPIError(c, errors.InternalError(message))
}
