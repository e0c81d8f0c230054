package service

import (
	"context"
	"fmt"
	"time"

	"travel-admin-api/internal/model"
	"travel-admin-api/internal/payload"
	apperrors "travel-admin-api/pkg/errors"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Messages returned to callers. They are part of the HTTP contract.
const (
	MsgMissingToken       = "Missing user token"
	MsgInvalidToken       = "Invalid user token"
	MsgUnverifiedUser     = "Unable to verify user"
	MsgAdminCheckFailed   = "Failed to check admin table"
	MsgNotAdmin           = "Not an admin"
	MsgUpsertFailed       = "Upsert failed"
	MsgUpsertParseFailed  = "Upsert succeeded but response parse failed"
	MsgListFailed         = "Failed to list laptop requests"
	MsgDeleteFailed       = "Delete failed"
	MsgInternalError      = "Internal server error"
	laptopRequestResource = "laptop request"
)

// Sentinel errors shared by the store implementations. Implementations may
// wrap or mark them; check with errors.Is from github.com/cockroachdb/errors.
var (
	// ErrInvalidToken means the identity provider rejected the bearer token.
	ErrInvalidToken = errors.New("identity provider rejected token")
	// ErrUnverifiedSubject means the identity provider answered without a subject id.
	ErrUnverifiedSubject = errors.New("identity response carried no subject id")
	// ErrResponseDecode means a response reported as successful could not be parsed.
	ErrResponseDecode = errors.New("failed to decode backend response")
	// ErrNotFound means the targeted row does not exist.
	ErrNotFound = errors.New("row not found")
)

// StatusError is a non-success answer from the backend. StatusCode and Body
// are forwarded to the caller where the HTTP contract asks for it.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// AsStatusError extracts a StatusError from err's chain.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Authenticator resolves a bearer token to the subject it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Subject, error)
}

// AdminDirectory answers whether a subject is on the admin allow-list.
type AdminDirectory interface {
	IsAdmin(ctx context.Context, subjectID string) (bool, error)
}

// ListQuery selects a page of laptop requests, newest first.
type ListQuery struct {
	DestinationID *int64 `validate:"omitempty,min=1"`
	Limit         int    `validate:"min=1,max=100"`
	Offset        int    `validate:"min=0"`
}

// LaptopRequestStore persists laptop requests.
type LaptopRequestStore interface {
	// Upsert inserts row, or merges it into the row with the same id, and
	// returns the stored row. A nil row with a nil error means the store
	// reported success without returning a representation.
	Upsert(ctx context.Context, row model.Row) (model.Row, error)
	List(ctx context.Context, q ListQuery) ([]model.Row, error)
	Delete(ctx context.Context, id int64) error
}

// LaptopRequestService implements the admin-gated operations on laptop requests
type LaptopRequestService struct {
	auth     Authenticator
	admins   AdminDirectory
	store    LaptopRequestStore
	notifier NotificationService
	logger   zerolog.Logger

	inlineNotifyTimeout time.Duration
}

// NewLaptopRequestService creates a new laptop request service. notifier may be nil.
func NewLaptopRequestService(auth Authenticator, admins AdminDirectory, store LaptopRequestStore, notifier NotificationService, logger zerolog.Logger, opts ...Option) *LaptopRequestService {
	s := &LaptopRequestService{
		auth:     auth,
		admins:   admins,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthorizeAdmin authenticates token and checks the subject against the admin
// allow-list. Errors are *apperrors.AppError values ready to be rendered.
func (s *LaptopRequestService) AuthorizeAdmin(ctx context.Context, token string) (model.Subject, error) {
	if token == "" {
		return model.Subject{}, apperrors.UnauthorizedError(MsgMissingToken, nil)
	}

	subject, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			return model.Subject{}, apperrors.UnauthorizedError(MsgInvalidToken, err)
		case errors.Is(err, ErrUnverifiedSubject):
			return model.Subject{}, apperrors.UnauthorizedError(MsgUnverifiedUser, err)
		default:
			return model.Subject{}, apperrors.InternalError(MsgInternalError, errors.Wrap(err, "authenticate"))
		}
	}
	if subject.ID == "" {
		return model.Subject{}, apperrors.UnauthorizedError(MsgUnverifiedUser, nil)
	}

	isAdmin, err := s.admins.IsAdmin(ctx, subject.ID)
	if err != nil {
		if se, ok := AsStatusError(err); ok {
			return model.Subject{}, apperrors.InternalError(MsgAdminCheckFailed, err).WithDetail(se.Body)
		}
		return model.Subject{}, apperrors.InternalError(MsgInternalError, errors.Wrap(err, "check admin"))
	}
	if !isAdmin {
		return model.Subject{}, apperrors.ForbiddenError(MsgNotAdmin)
	}

	return subject, nil
}

// Upsert normalizes p and writes it as a single upsert keyed by id.
func (s *LaptopRequestService) Upsert(ctx context.Context, p payload.Payload) (model.Row, error) {
	row := payload.Normalize(p)
	isNew := !payload.HasID(row)

	stored, err := s.store.Upsert(ctx, row)
	if err != nil {
		if se, ok := AsStatusError(err); ok {
			return nil, apperrors.UpstreamError(MsgUpsertFailed, se.StatusCode, se.Body, err)
		}
		if errors.Is(err, ErrResponseDecode) {
			return nil, apperrors.ResponseDecodeError(MsgUpsertParseFailed, err)
		}
		return nil, apperrors.InternalError(MsgInternalError, errors.Wrap(err, "upsert laptop request"))
	}

	if isNew && stored != nil {
		s.notify(ctx, creationNotification(stored))
	}

	return stored, nil
}

// List returns a page of laptop requests.
func (s *LaptopRequestService) List(ctx context.Context, q ListQuery) ([]model.Row, error) {
	rows, err := s.store.List(ctx, q)
	if err != nil {
		if se, ok := AsStatusError(err); ok {
			return nil, apperrors.UpstreamError(MsgListFailed, se.StatusCode, se.Body, err)
		}
		return nil, apperrors.InternalError(MsgInternalError, errors.Wrap(err, "list laptop requests"))
	}
	if rows == nil {
		rows = []model.Row{}
	}
	return rows, nil
}

// Delete removes a laptop request by id.
func (s *LaptopRequestService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperrors.NotFoundError(laptopRequestResource)
		}
		if se, ok := AsStatusError(err); ok {
			return apperrors.UpstreamError(MsgDeleteFailed, se.StatusCode, se.Body, err)
		}
		return apperrors.InternalError(MsgInternalError, errors.Wrap(err, "delete laptop request"))
	}

	s.logger.Info().Int64("laptop_request_id", id).Msg("laptop request deleted")
	s.notify(ctx, deletionNotification(id))
	return nil
}
