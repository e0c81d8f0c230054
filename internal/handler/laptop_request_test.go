package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"travel-admin-api/internal/config"
	"travel-admin-api/internal/model"
	"travel-admin-api/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend implements the three service capabilities and records calls
type fakeBackend struct {
	mu sync.Mutex

	admins      map[string]bool
	tokens      map[string]string
	upsertErr   error
	upsertReply func(model.Row) model.Row
	rows        []model.Row
	deleteErr   error

	authCalls   int
	adminCalls  int
	upsertCalls int
	lastRow     model.Row
	lastQuery   service.ListQuery
	lastDelete  int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		admins: map[string]bool{"admin-1": true},
		tokens: map[string]string{"admin-token": "admin-1", "user-token": "user-1"},
	}
}

func (f *fakeBackend) Authenticate(_ context.Context, token string) (model.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	id, ok := f.tokens[token]
	if !ok {
		return model.Subject{}, service.ErrInvalidToken
	}
	return model.Subject{ID: id}, nil
}

func (f *fakeBackend) IsAdmin(_ context.Context, subjectID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminCalls++
	return f.admins[subjectID], nil
}

func (f *fakeBackend) Upsert(_ context.Context, row model.Row) (model.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	f.lastRow = row
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.upsertReply != nil {
		return f.upsertReply(row), nil
	}
	stored := model.Row{"id": json.Number("1")}
	for k, v := range row {
		stored[k] = v
	}
	return stored, nil
}

func (f *fakeBackend) List(_ context.Context, q service.ListQuery) ([]model.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	return f.rows, nil
}

func (f *fakeBackend) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastDelete = id
	return f.deleteErr
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls + f.adminCalls + f.upsertCalls
}

func newTestHandler(backend *fakeBackend, backendCheck func() error) *LaptopRequestHandler {
	svc := service.NewLaptopRequestService(backend, backend, backend, nil, zerolog.Nop())
	return NewLaptopRequestHandler(svc, backendCheck, 0, zerolog.Nop())
}

func doUpsert(h *LaptopRequestHandler, method, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/upsert-laptop", strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.UpsertLaptopHandler(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	dec := json.NewDecoder(rr.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&body))
	return body
}

func TestUpsertLaptopHandler_Success(t *testing.T) {
	backend := newFakeBackend()
	h := newTestHandler(backend, nil)

	rr := doUpsert(h, http.MethodPost, "Bearer admin-token", `{"customerName":"Budi","destinationId":3}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	data := decodeBody(t, rr)["data"].(map[string]any)
	assert.Equal(t, "Budi", data["customer_name"])
	assert.Equal(t, json.Number("3"), data["destination_id"])
}

func TestUpsertLaptopHandler_NullRow(t *testing.T) {
	backend := newFakeBackend()
	backend.upsertReply = func(model.Row) model.Row { return nil }
	h := newTestHandler(backend, nil)

	rr := doUpsert(h, http.MethodPost, "Bearer admin-token", `{"customerName":"Budi"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":null}`, rr.Body.String())
}

func TestUpsertLaptopHandler_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		auth        string
		body        string
		check       func() error
		wantStatus  int
		wantError   string
		wantCalls   int
		wantNoWrite bool
	}{
		{
			name:       "missing authorization",
			method:     http.MethodPost,
			body:       `{}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Missing user token",
			wantCalls:  0,
		},
		{
			name:       "bearer without token",
			method:     http.MethodPost,
			auth:       "bearer    ",
			body:       `{}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Missing user token",
			wantCalls:  0,
		},
		{
			name:       "invalid token",
			method:     http.MethodPost,
			auth:       "Bearer nope",
			body:       `{}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid user token",
			wantCalls:  1,
		},
		{
			name:        "not an admin",
			method:      http.MethodPost,
			auth:        "Bearer user-token",
			body:        `{"customerName":"x"}`,
			wantStatus:  http.StatusForbidden,
			wantError:   "Not an admin",
			wantCalls:   2,
			wantNoWrite: true,
		},
		{
			name:        "array payload",
			method:      http.MethodPost,
			auth:        "BEARER admin-token",
			body:        `[{"customerName":"x"}]`,
			wantStatus:  http.StatusBadRequest,
			wantError:   "Invalid payload",
			wantCalls:   2,
			wantNoWrite: true,
		},
		{
			name:        "invalid json",
			method:      http.MethodPost,
			auth:        "Bearer admin-token",
			body:        `{"customerName":`,
			wantStatus:  http.StatusBadRequest,
			wantError:   "Invalid payload",
			wantCalls:   2,
			wantNoWrite: true,
		},
		{
			name:        "empty body",
			method:      http.MethodPost,
			auth:        "Bearer admin-token",
			wantStatus:  http.StatusBadRequest,
			wantError:   "Invalid payload",
			wantCalls:   2,
			wantNoWrite: true,
		},
		{
			name:       "misconfigured backend",
			method:     http.MethodPost,
			auth:       "Bearer admin-token",
			body:       `{}`,
			check:      func() error { return config.ErrBackendMisconfigured },
			wantStatus: http.StatusInternalServerError,
			wantError:  config.MisconfiguredMessage,
			wantCalls:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			h := newTestHandler(backend, tt.check)

			rr := doUpsert(h, tt.method, tt.auth, tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantError, decodeBody(t, rr)["error"])
			assert.Equal(t, tt.wantCalls, backend.calls())
			if tt.wantNoWrite {
				assert.Zero(t, backend.upsertCalls)
			}
		})
	}
}

func TestUpsertLaptopHandler_Methods(t *testing.T) {
	backend := newFakeBackend()
	h := newTestHandler(backend, func() error { return config.ErrBackendMisconfigured })

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rr := doUpsert(h, method, "Bearer admin-token", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, method)
		assert.Equal(t, "POST", rr.Header().Get("Allow"))
		assert.Equal(t, "Method not allowed", decodeBody(t, rr)["error"])
	}

	rr := doUpsert(h, http.MethodOptions, "", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Zero(t, backend.calls())
}

func TestUpsertLaptopHandler_Normalization(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		absent []string
		check  func(t *testing.T, row model.Row)
	}{
		{name: "zero id", body: `{"id":0,"customerName":"a"}`, absent: []string{"id"}},
		{name: "null id", body: `{"id":null,"customerName":"a"}`, absent: []string{"id"}},
		{name: "empty createdAt", body: `{"createdAt":"","customerName":"a"}`, absent: []string{"created_at"}},
		{name: "omitted createdAt", body: `{"customerName":"a"}`, absent: []string{"created_at"}},
		{
			name: "long name truncated",
			body: `{"customerName":"` + strings.Repeat("é", 300) + `"}`,
			check: func(t *testing.T, row model.Row) {
				assert.Equal(t, strings.Repeat("é", 255), row["customer_name"])
			},
		},
		{
			name: "existing id kept",
			body: `{"id":15,"notes":"aisle"}`,
			check: func(t *testing.T, row model.Row) {
				assert.Equal(t, json.Number("15"), row["id"])
				assert.Equal(t, "aisle", row["notes"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			h := newTestHandler(backend, nil)

			rr := doUpsert(h, http.MethodPost, "Bearer admin-token", tt.body)
			require.Equal(t, http.StatusOK, rr.Code)

			for _, key := range tt.absent {
				assert.NotContains(t, backend.lastRow, key)
			}
			if tt.check != nil {
				tt.check(t, backend.lastRow)
			}
		})
	}
}

func TestUpsertLaptopHandler_UpstreamFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.upsertErr = &service.StatusError{Operation: "upsert", StatusCode: http.StatusConflict, Body: `{"code":"23505"}`}
	h := newTestHandler(backend, nil)

	rr := doUpsert(h, http.MethodPost, "Bearer admin-token", `{"customerName":"a"}`)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"Upsert failed","status":409,"detail":"{\"code\":\"23505\"}"}`, rr.Body.String())
}

func TestUpsertLaptopHandler_UpstreamFailureLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	backend := newFakeBackend()
	backend.upsertErr = &service.StatusError{Operation: "upsert", StatusCode: http.StatusConflict, Body: `{"code":"23505","message":"duplicate key"}`}
	svc := service.NewLaptopRequestService(backend, backend, backend, nil, logger)
	h := NewLaptopRequestHandler(svc, nil, 0, logger)

	rr := doUpsert(h, http.MethodPost, "Bearer admin-token", `{"customerName":"a"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "Upsert failed", entry["message"])
	assert.Equal(t, float64(http.StatusConflict), entry["status"])
	assert.Contains(t, entry["detail"], "duplicate key")
}

func TestUpsertLaptopHandler_UnexpectedError(t *testing.T) {
	backend := newFakeBackend()
	backend.upsertErr = errors.New("connection reset by peer")
	h := newTestHandler(backend, nil)

	rr := doUpsert(h, http.MethodPost, "Bearer admin-token", `{"customerName":"a"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
}

func TestUpsertLaptopHandler_BodyTooLarge(t *testing.T) {
	backend := newFakeBackend()
	svc := service.NewLaptopRequestService(backend, backend, backend, nil, zerolog.Nop())
	h := NewLaptopRequestHandler(svc, nil, 16, zerolog.Nop())

	rr := doUpsert(h, http.MethodPost, "Bearer admin-token", `{"notes":"`+strings.Repeat("x", 64)+`"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, backend.upsertCalls)
}

func TestListLaptopRequestsHandler(t *testing.T) {
	backend := newFakeBackend()
	backend.rows = []model.Row{{"id": json.Number("2")}, {"id": json.Number("1")}}
	h := newTestHandler(backend, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/laptop-requests?limit=2&offset=4&destination_id=9", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rr := httptest.NewRecorder()
	h.ListLaptopRequestsHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[{"id":2},{"id":1}],"pagination":{"limit":2,"offset":4,"count":2}}`, rr.Body.String())
	require.NotNil(t, backend.lastQuery.DestinationID)
	assert.Equal(t, int64(9), *backend.lastQuery.DestinationID)
}

func TestListLaptopRequestsHandler_EmptyAndInvalid(t *testing.T) {
	backend := newFakeBackend()
	h := newTestHandler(backend, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/laptop-requests", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rr := httptest.NewRecorder()
	h.ListLaptopRequestsHandler(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[],"pagination":{"limit":50,"offset":0,"count":0}}`, rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/laptop-requests?limit=500", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rr = httptest.NewRecorder()
	h.ListLaptopRequestsHandler(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Invalid query parameters", body["error"])
	assert.Equal(t, "limit must be at most 100", body["detail"])

	req = httptest.NewRequest(http.MethodGet, "/api/laptop-requests", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rr = httptest.NewRecorder()
	h.ListLaptopRequestsHandler(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDeleteLaptopRequestHandler(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		deleteErr  error
		wantStatus int
		wantBody   string
	}{
		{name: "deleted", id: "12", wantStatus: http.StatusOK, wantBody: `{"data":{"id":12}}`},
		{name: "missing", id: "13", deleteErr: service.ErrNotFound, wantStatus: http.StatusNotFound, wantBody: `{"error":"laptop request not found"}`},
		{name: "bad id", id: "abc", wantStatus: http.StatusBadRequest},
		{name: "zero id", id: "0", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.deleteErr = tt.deleteErr
			h := newTestHandler(backend, nil)

			req := httptest.NewRequest(http.MethodDelete, "/api/laptop-requests/"+tt.id, nil)
			req.Header.Set("Authorization", "Bearer admin-token")
			req = mux.SetURLVars(req, map[string]string{"id": tt.id})
			rr := httptest.NewRecorder()
			h.DeleteLaptopRequestHandler(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestArchivedHandler(t *testing.T) {
	for _, name := range []string{"create-invoice", "create-order"} {
		h := NewArchivedHandler(name, NewErrorHandler(zerolog.Nop()))
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(method, "/api/"+name, nil))

			assert.Equal(t, http.StatusGone, rr.Code)
			assert.Equal(t, "POST", rr.Header().Get("Allow"))
			assert.JSONEq(t, `{"error":"Endpoint archived: `+name+` is disabled."}`, rr.Body.String())
		}
	}
}

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(NewErrorHandler(zerolog.Nop()), nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Service is healthy", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, ServiceName, data["service"])
	assert.NotEmpty(t, data["timestamp"])
	assert.NotContains(t, data, "dependencies")
}

type staticChecker bool

func (c staticChecker) IsHealthy(context.Context) bool { return bool(c) }

func TestHealthHandler_Dependencies(t *testing.T) {
	tests := []struct {
		name        string
		healthy     bool
		wantStatus  string
		wantState   string
		wantMessage string
	}{
		{"notifier reachable", true, "healthy", "up", "Service is healthy"},
		{"notifier unreachable", false, "degraded", "down", "Service is degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(NewErrorHandler(zerolog.Nop()), map[string]HealthChecker{
				"notifications": staticChecker(tt.healthy),
			})

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			require.Equal(t, http.StatusOK, rr.Code)
			body := decodeBody(t, rr)
			assert.Equal(t, tt.wantMessage, body["message"])
			data := body["data"].(map[string]any)
			assert.Equal(t, tt.wantStatus, data["status"])
			assert.Equal(t, map[string]any{"notifications": tt.wantState}, data["dependencies"])
		})
	}
}

func TestBearerToken(t *testing.T) {
	rh := NewResponseHelper()
	tests := map[string]string{
		"Bearer abc":      "abc",
		"bearer abc ":     "abc",
		"BEARER\tabc":     "abc",
		"Bearer   a b":    "a b",
		"abc":             "abc",
		"":                "",
		"Bearer ":         "",
		"Bearerabc":       "Bearerabc",
		" Bearer abc":     "Bearer abc",
	}
	for header, want := range tests {
		assert.Equal(t, want, rh.BearerToken(header), header)
	}
}

func TestBackendContext_IgnoresClientCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)
	cancel()

	detached := NewResponseHelper().BackendContext(req)
	assert.NoError(t, detached.Err())
}
