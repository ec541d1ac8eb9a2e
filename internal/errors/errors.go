package errors

import (
	"fmt"
)

// APIError is the error body returned by every handler
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound builds "<resource> not found"
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

func Forbidden(message string) *APIError {
	return newError(ErrForbidden, message)
}

func Conflict(message string) *APIError {
	return newError(ErrConflict, message)
}

// ValidationError reports a bad value for a single request field
func ValidationError(field, message string) *APIError {
	e := newError(ErrValidation, message)
	e.Field = field
	return e
}

func BadRequest(message string) *APIError {
	return newError(ErrBadRequest, message)
}

func InternalError(message string) *APIError {
	return newError(ErrInternalError, message)
}

func RateLimited(message string) *APIError {
	return newError(ErrRateLimited, message)
}

func ServiceUnavailable(message string) *APIError {
	return newError(ErrServiceUnavail, message)
}

// WithDetails returns a copy of e carrying details
func (e *APIError) WithDetails(details string) *APIError {
	out := *e
	out.Details = details
	return &out
}
