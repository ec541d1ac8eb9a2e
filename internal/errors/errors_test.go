package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsCarryStatus(t *testing.T) {
	tests := []struct {
		err    *APIError
		status int
	}{
		{NotFound("post"), http.StatusNotFound},
		{Unauthorized("nope"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{Conflict("dup"), http.StatusConflict},
		{ValidationError("text", "required"), http.StatusBadRequest},
		{BadRequest("bad"), http.StatusBadRequest},
		{InternalError("boom"), http.StatusInternalServerError},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{ServiceUnavailable("down"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.Status, string(tt.err.Code))
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: post not found", NotFound("post").Error())
	assert.Equal(t, "VALIDATION_ERROR: required (field: text)", ValidationError("text", "required").Error())
}

func TestWithDetailsCopies(t *testing.T) {
	base := InternalError("boom")
	detailed := base.WithDetails("db down")
	assert.Empty(t, base.Details)
	assert.Equal(t, "db down", detailed.Details)
}

func TestUnknownCodeIs500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("WHAT").StatusCode())
}
