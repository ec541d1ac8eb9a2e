package errors

import "net/http"

// ErrorCode is the machine-readable code carried by every error response
type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrForbidden      ErrorCode = "FORBIDDEN"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

// StatusCodeMap maps codes to HTTP status. Validation failures are plain 400s.
var StatusCodeMap = map[ErrorCode]int{
	ErrNotFound:       http.StatusNotFound,
	ErrUnauthorized:   http.StatusUnauthorized,
	ErrForbidden:      http.StatusForbidden,
	ErrConflict:       http.StatusConflict,
	ErrValidation:     http.StatusBadRequest,
	ErrBadRequest:     http.StatusBadRequest,
	ErrInternalError:  http.StatusInternalServerError,
	ErrRateLimited:    http.StatusTooManyRequests,
	ErrServiceUnavail: http.StatusServiceUnavailable,
}

// StatusCode returns the HTTP status for the code, 500 when unknown
func (e ErrorCode) StatusCode() int {
	if status, ok := StatusCodeMap[e]; ok {
		return status
	}
	return http.StatusInternalServerError
}
