package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Request errors
	ErrorCodeInvalidPayload   ErrorCode = "INVALID_PAYLOAD"
	ErrorCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"
	ErrorCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"

	// Access errors
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrorCodeGone         ErrorCode = "GONE"

	// Technical errors
	ErrorCodeMisconfiguration ErrorCode = "MISCONFIGURATION"
	ErrorCodeUpstream         ErrorCode = "UPSTREAM_ERROR"
	ErrorCodeResponseDecode   ErrorCode = "RESPONSE_DECODE_ERROR"
	ErrorCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a structured application error.
//
// Status overrides the code's default HTTP status; it is used when a backend
// status is forwarded verbatim to the caller. Detail carries upstream failure
// text that is echoed back in the response body.
type AppError struct {
	Code    ErrorCode
	Message string
	Status  int
	Detail  string
	Cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetHTTPStatus returns the appropriate HTTP status code for the error
func (e *AppError) GetHTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}

	switch e.Code {
	case ErrorCodeInvalidPayload, ErrorCodeInvalidParameter:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorCodeGone:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewAppErrorWithCause creates a new application error with an underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithDetail attaches upstream detail text to the error
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithStatus forces the HTTP status reported for the error
func (e *AppError) WithStatus(status int) *AppError {
	e.Status = status
	return e
}

// Predefined error constructors for common cases

// MisconfigurationError reports missing server-side configuration
func MisconfigurationError(message string) *AppError {
	return NewAppError(ErrorCodeMisconfiguration, message)
}

// UnauthorizedError creates an authentication failure
func UnauthorizedError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeUnauthorized, message, cause)
}

// ForbiddenError creates an authorization failure
func ForbiddenError(message string) *AppError {
	return NewAppError(ErrorCodeForbidden, message)
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *AppError {
	return NewAppError(ErrorCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InvalidPayloadError creates an error for a body that is not a JSON object
func InvalidPayloadError(cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeInvalidPayload, "Invalid payload", cause)
}

// InvalidParameterError creates an error for a bad path or query parameter
func InvalidParameterError(message string) *AppError {
	return NewAppError(ErrorCodeInvalidParameter, message)
}

// UpstreamError reports a failed backend call. A zero status falls back to 500.
func UpstreamError(message string, status int, detail string, cause error) *AppError {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return NewAppErrorWithCause(ErrorCodeUpstream, message, cause).WithStatus(status).WithDetail(detail)
}

// ResponseDecodeError reports a backend response that could not be parsed
// after the backend reported success.
func ResponseDecodeError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeResponseDecode, message, cause)
}

// InternalError creates an internal server error
func InternalError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeInternal, message, cause)
}

// Error handling utilities

// AsAppError extracts an AppError from an error chain if one is present
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// WrapError wraps a generic error as an internal error
func WrapError(err error, message string) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return NewAppErrorWithCause(ErrorCodeInternal, message, err)
}
