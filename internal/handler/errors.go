package handler

import (
	"encoding/json"
	"net/http"

	apperrors "travel-admin-api/pkg/errors"

	"github.com/rs/zerolog"
)

// MsgInternalError is the body sent for any failure without a more specific message
const MsgInternalError = "Internal server error"

// ErrorResponse structure for consistent JSON error responses
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// DataResponse wraps a successful payload. Data is always present, null
// included.
type DataResponse struct {
	Data any `json:"data"`
}

// SuccessResponse structure for responses that carry a message
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorHandler provides centralized error handling functionality for handlers
type ErrorHandler struct {
	Logger zerolog.Logger
}

// NewErrorHandler creates a new ErrorHandler instance
func NewErrorHandler(logger zerolog.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger: logger,
	}
}

// HandleError renders err. Errors that are not *apperrors.AppError become a
// 500 with the generic message.
func (e *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.WrapError(err, MsgInternalError)
	status := appErr.GetHTTPStatus()
	upstream := apperrors.HasCode(appErr, apperrors.ErrorCodeUpstream)

	logger := e.logger(r)
	var event *zerolog.Event
	switch {
	case status >= http.StatusInternalServerError, upstream:
		event = logger.Error()
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		event = logger.Warn()
	default:
		event = logger.Debug()
	}
	event.
		Err(appErr.Cause).
		Str("code", string(appErr.Code)).
		Int("status", status).
		Str("detail", appErr.Detail).
		Msg(appErr.Message)

	response := ErrorResponse{
		Error:  appErr.Message,
		Detail: appErr.Detail,
	}
	if upstream {
		response.Status = status
	}

	e.SendJSONResponse(w, r, status, response)
}

// SendSuccessResponse sends a structured success response
func (e *ErrorHandler) SendSuccessResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string, data any) {
	e.SendJSONResponse(w, r, statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// SendJSONResponse sends a generic JSON response
func (e *ErrorHandler) SendJSONResponse(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		e.logger(r).Error().Err(err).Msg("failed to encode response")
	}
}

// logger prefers the request scoped logger installed by the logging middleware
func (e *ErrorHandler) logger(r *http.Request) *zerolog.Logger {
	if r != nil {
		if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &e.Logger
}
