package handler

import (
	"context"
	"net/http"
	"strings"

	"travel-admin-api/internal/config"
	"travel-admin-api/internal/model"
	"travel-admin-api/internal/payload"
	"travel-admin-api/internal/service"
	apperrors "travel-admin-api/pkg/errors"
	"travel-admin-api/pkg/validation"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured
const DefaultMaxBodyBytes = 1 << 20

// LaptopRequestService is the subset of the service layer used by the handler
type LaptopRequestService interface {
	AuthorizeAdmin(ctx context.Context, token string) (model.Subject, error)
	Upsert(ctx context.Context, p payload.Payload) (model.Row, error)
	List(ctx context.Context, q service.ListQuery) ([]model.Row, error)
	Delete(ctx context.Context, id int64) error
}

// LaptopRequestHandler handles the admin laptop request endpoints.
type LaptopRequestHandler struct {
	Service LaptopRequestService

	// BackendCheck reports whether the backend endpoint and credential are
	// configured. A non-nil error turns every call into a misconfiguration
	// response before any backend call is made.
	BackendCheck func() error

	MaxBodyBytes int64
	Logger       zerolog.Logger

	ErrorHandler   *ErrorHandler
	ResponseHelper *ResponseHelper
}

// NewLaptopRequestHandler creates a new LaptopRequestHandler with dependencies and helpers
func NewLaptopRequestHandler(svc LaptopRequestService, backendCheck func() error, maxBodyBytes int64, logger zerolog.Logger) *LaptopRequestHandler {
	if backendCheck == nil {
		backendCheck = func() error { return nil }
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	return &LaptopRequestHandler{
		Service:        svc,
		BackendCheck:   backendCheck,
		MaxBodyBytes:   maxBodyBytes,
		Logger:         logger,
		ErrorHandler:   NewErrorHandler(logger),
		ResponseHelper: NewResponseHelper(),
	}
}

// UpsertLaptopHandler creates or merges a laptop request on behalf of an admin.
func (h *LaptopRequestHandler) UpsertLaptopHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r, http.MethodPost)
		return
	}

	ctx, ok := h.authorize(w, r)
	if !ok {
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	p, err := payload.Decode(body)
	if err != nil {
		h.ErrorHandler.HandleError(w, r, apperrors.InvalidPayloadError(err))
		return
	}

	row, err := h.Service.Upsert(ctx, p)
	if err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	h.ErrorHandler.SendJSONResponse(w, r, http.StatusOK, DataResponse{Data: row})
}

// ListLaptopRequestsHandler returns a page of laptop requests, newest first.
func (h *LaptopRequestHandler) ListLaptopRequestsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r, http.MethodGet)
		return
	}

	ctx, ok := h.authorize(w, r)
	if !ok {
		return
	}

	q, problems := validation.ParseListQuery(r.URL.Query())
	if len(problems) > 0 {
		h.ErrorHandler.HandleError(w, r,
			apperrors.InvalidParameterError("Invalid query parameters").WithDetail(strings.Join(problems, "; ")))
		return
	}

	rows, err := h.Service.List(ctx, q)
	if err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	h.ErrorHandler.SendJSONResponse(w, r, http.StatusOK, ListResponse{
		Data: rows,
		Pagination: PaginationMeta{
			Limit:  q.Limit,
			Offset: q.Offset,
			Count:  len(rows),
		},
	})
}

// DeleteLaptopRequestHandler removes a laptop request by id.
func (h *LaptopRequestHandler) DeleteLaptopRequestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		h.methodNotAllowed(w, r, http.MethodDelete)
		return
	}

	ctx, ok := h.authorize(w, r)
	if !ok {
		return
	}

	id, err := validation.ParseID(mux.Vars(r)["id"])
	if err != nil {
		h.ErrorHandler.HandleError(w, r, apperrors.InvalidParameterError("Invalid laptop request id").WithDetail(err.Error()))
		return
	}

	if err := h.Service.Delete(ctx, id); err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	h.ErrorHandler.SendJSONResponse(w, r, http.StatusOK, DataResponse{Data: map[string]int64{"id": id}})
}

// authorize runs the configuration check, authentication and the admin check
// shared by every endpoint. On failure the response has been written.
func (h *LaptopRequestHandler) authorize(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	if err := h.BackendCheck(); err != nil {
		h.ErrorHandler.HandleError(w, r, apperrors.MisconfigurationError(config.MisconfiguredMessage))
		return nil, false
	}

	ctx := h.ResponseHelper.BackendContext(r)
	token := h.ResponseHelper.BearerToken(r.Header.Get("Authorization"))

	subject, err := h.Service.AuthorizeAdmin(ctx, token)
	if err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return nil, false
	}

	zerolog.Ctx(r.Context()).Debug().Str("subject", subject.ID).Msg("admin authorized")
	return ctx, true
}

func (h *LaptopRequestHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	h.ErrorHandler.HandleError(w, r, apperrors.NewAppError(apperrors.ErrorCodeMethodNotAllowed, "Method not allowed"))
}
