package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"travel-admin-api/internal/app"
	"travel-admin-api/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	serviceKey = "service-role-key"
	adminToken = "admin-token"
	userToken  = "user-token"
)

// fakeSupabase emulates the identity endpoint and the row API closely
// enough for the admin endpoints.
type fakeSupabase struct {
	mu       sync.Mutex
	requests []recordedRequest
	nextID   int
	rows     []map[string]any

	upsertStatus int
	upsertBody   string
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

func (f *fakeSupabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})

	if r.Header.Get("apikey") != serviceKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/auth/v1/user":
		switch r.Header.Get("Authorization") {
		case "Bearer " + adminToken:
			_, _ = io.WriteString(w, `{"id":"admin-uid","email":"admin@example.com"}`)
		case "Bearer " + userToken:
			_, _ = io.WriteString(w, `{"id":"user-uid","email":"user@example.com"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"msg":"invalid JWT"}`)
		}

	case r.URL.Path == "/rest/v1/admins":
		if r.URL.Query().Get("auth_uid") == "eq.admin-uid" {
			_, _ = io.WriteString(w, `[{"id":1}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)

	case r.URL.Path == "/rest/v1/laptop_requests" && r.Method == http.MethodPost:
		if f.upsertStatus != 0 {
			w.WriteHeader(f.upsertStatus)
			_, _ = io.WriteString(w, f.upsertBody)
			return
		}
		var batch []map[string]any
		if err := json.Unmarshal(body, &batch); err != nil || len(batch) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		row := batch[0]
		if _, ok := row["id"]; !ok {
			f.nextID++
			row["id"] = f.nextID
		}
		f.rows = append(f.rows, row)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]map[string]any{row})

	case r.URL.Path == "/rest/v1/laptop_requests" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(f.rows)

	case r.URL.Path == "/rest/v1/laptop_requests" && r.Method == http.MethodDelete:
		if r.URL.Query().Get("id") == "eq.1" {
			_, _ = io.WriteString(w, `[{"id":1}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeSupabase) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeSupabase) writes() []recordedRequest {
	var out []recordedRequest
	for _, r := range f.recorded() {
		if r.Path == "/rest/v1/laptop_requests" && r.Method == http.MethodPost {
			out = append(out, r)
		}
	}
	return out
}

// IntegrationTestSuite holds the test dependencies
type IntegrationTestSuite struct {
	Backend *fakeSupabase
	Server  *httptest.Server
	Config  *config.Config
}

// setupIntegrationTest assembles the application against a fake backend.
// env overrides are applied before the configuration is read.
func setupIntegrationTest(t *testing.T, env map[string]string, opts ...app.Option) *IntegrationTestSuite {
	t.Helper()

	fake := &fakeSupabase{}
	backendServer := httptest.NewServer(fake)
	t.Cleanup(backendServer.Close)

	t.Setenv("SUPABASE_URL", backendServer.URL)
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", serviceKey)
	t.Setenv("RATE_LIMIT_RPS", "1000")
	t.Setenv("RATE_LIMIT_BURST", "1000")
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	application, err := app.New(context.Background(), cfg, zerolog.Nop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	server := httptest.NewServer(application.Handler)
	t.Cleanup(server.Close)

	return &IntegrationTestSuite{Backend: fake, Server: server, Config: cfg}
}

func (s *IntegrationTestSuite) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		_ = dec.Decode(&decoded)
	}
	return resp, decoded
}
