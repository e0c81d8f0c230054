package handler

import (
	"fmt"
	"net/http"

	apperrors "travel-admin-api/pkg/errors"
)

// ArchivedHandler answers every request to a retired endpoint with 410 Gone.
type ArchivedHandler struct {
	Name         string
	ErrorHandler *ErrorHandler
}

// NewArchivedHandler creates the handler for the retired endpoint name.
func NewArchivedHandler(name string, errorHandler *ErrorHandler) *ArchivedHandler {
	return &ArchivedHandler{Name: name, ErrorHandler: errorHandler}
}

// ServeHTTP implements http.Handler
func (h *ArchivedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	h.ErrorHandler.HandleError(w, r,
		apperrors.NewAppError(apperrors.ErrorCodeGone, fmt.Sprintf("Endpoint archived: %s is disabled.", h.Name)))
}
