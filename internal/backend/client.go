// Package backend talks to the hosted Postgres service: its identity endpoint
// (/auth/v1) and its auto-generated row API (/rest/v1).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"travel-admin-api/internal/metrics"
	"travel-admin-api/internal/model"
	"travel-admin-api/internal/service"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	userAgent        = "travel-admin-api/1.0"
	maxResponseBytes = 4 << 20

	preferUpsert         = "return=representation,resolution=merge-duplicates"
	preferRepresentation = "return=representation"
)

// Config holds the endpoint and service credential of the backend
type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// Client calls the backend with the service credential. It implements
// service.Authenticator, service.AdminDirectory and service.LaptopRequestStore.
type Client struct {
	config  Config
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records every backend call in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new backend Client
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		config:  cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate exchanges a caller's access token for the subject it belongs to.
func (c *Client) Authenticate(ctx context.Context, token string) (subject model.Subject, err error) {
	defer c.observe("authenticate", time.Now(), &err)

	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", nil, nil)
	if err != nil {
		return model.Subject{}, err
	}
	// The caller's token identifies the user; the apikey header stays the service key.
	req.Header.Set("Authorization", "Bearer "+token)

	status, body, err := c.do(req)
	if err != nil {
		return model.Subject{}, err
	}
	if !isSuccess(status) {
		c.logger.Debug().Int("status", status).Msg("identity endpoint rejected token")
		return model.Subject{}, errors.Mark(
			&service.StatusError{Operation: "authenticate", StatusCode: status, Body: string(body)},
			service.ErrInvalidToken)
	}

	if err := json.Unmarshal(body, &subject); err != nil {
		return model.Subject{}, errors.Mark(errors.Wrap(err, "decode identity response"), service.ErrResponseDecode)
	}
	if subject.ID == "" {
		return model.Subject{}, service.ErrUnverifiedSubject
	}

	return subject, nil
}

// IsAdmin reports whether subjectID appears in the admins allow-list. The
// lookup uses the service credential and therefore bypasses row-level security.
func (c *Client) IsAdmin(ctx context.Context, subjectID string) (ok bool, err error) {
	defer c.observe("check_admin", time.Now(), &err)

	query := url.Values{}
	query.Set("auth_uid", "eq."+subjectID)
	query.Set("select", "id")

	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/"+model.AdminsTable, query, nil)
	if err != nil {
		return false, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return false, err
	}
	if !isSuccess(status) {
		return false, &service.StatusError{Operation: "check_admin", StatusCode: status, Body: string(body)}
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return false, errors.Mark(errors.Wrap(err, "decode admins response"), service.ErrResponseDecode)
	}
	rows, isArray := decoded.([]any)
	return isArray && len(rows) > 0, nil
}

// Upsert inserts row or merges it into the existing row with the same id and
// returns the resulting row. A nil row means the backend returned none.
func (c *Client) Upsert(ctx context.Context, row model.Row) (result model.Row, err error) {
	defer c.observe("upsert", time.Now(), &err)

	payload, err := json.Marshal([]model.Row{row})
	if err != nil {
		return nil, errors.Wrap(err, "encode upsert body")
	}

	query := url.Values{}
	query.Set("on_conflict", model.ColumnID)

	req, err := c.newRequest(ctx, http.MethodPost, "/rest/v1/"+model.LaptopRequestsTable, query, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", preferUpsert)

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &service.StatusError{Operation: "upsert", StatusCode: status, Body: string(body)}
	}

	return decodeRepresentation(body)
}

// List returns laptop requests matching q.
func (c *Client) List(ctx context.Context, q service.ListQuery) (rows []model.Row, err error) {
	defer c.observe("list", time.Now(), &err)

	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", model.ColumnCreatedAt+".desc")
	query.Set("limit", strconv.Itoa(q.Limit))
	query.Set("offset", strconv.Itoa(q.Offset))
	if q.DestinationID != nil {
		query.Set(model.ColumnDestinationID, "eq."+strconv.FormatInt(*q.DestinationID, 10))
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/"+model.LaptopRequestsTable, query, nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &service.StatusError{Operation: "list", StatusCode: status, Body: string(body)}
	}

	return decodeRows(body)
}

// Delete removes the laptop request with the given id. service.ErrNotFound is
// returned when no row matched.
func (c *Client) Delete(ctx context.Context, id int64) (err error) {
	defer c.observe("delete", time.Now(), &err)

	query := url.Values{}
	query.Set(model.ColumnID, "eq."+strconv.FormatInt(id, 10))

	req, err := c.newRequest(ctx, http.MethodDelete, "/rest/v1/"+model.LaptopRequestsTable, query, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", preferRepresentation)

	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return &service.StatusError{Operation: "delete", StatusCode: status, Body: string(body)}
	}

	rows, err := decodeRows(body)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.Wrapf(service.ErrNotFound, "laptop request %d", id)
	}
	return nil
}

// newRequest builds a request against the backend carrying the service credential
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s request", path)
	}

	req.Header.Set("apikey", c.config.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return req, nil
}

// do sends req and reads the whole response body
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "send %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isSuccess(resp.StatusCode) {
			return resp.StatusCode, nil, errors.Mark(errors.Wrap(err, "read response body"), service.ErrResponseDecode)
		}
		body = []byte("<no body>")
	}

	return resp.StatusCode, body, nil
}

func (c *Client) observe(operation string, started time.Time, err *error) {
	c.metrics.ObserveUpstream(operation, started, *err)
}

func decodeRows(body []byte) ([]model.Row, error) {
	var rows []model.Row
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&rows); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode rows"), service.ErrResponseDecode)
	}
	return rows, nil
}

// errNullRepresentation is returned when a successful upsert answers with a
// JSON null, which has no first row to take.
var errNullRepresentation = errors.New("upsert returned a null representation")

// decodeRepresentation returns the first row of an upsert response. An empty
// array, an object or a scalar yields no row. A null body is an error that is
// not a decode failure, and a first element that is not an object is one.
func decodeRepresentation(body []byte) (model.Row, error) {
	var decoded any
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&decoded); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode upsert response"), service.ErrResponseDecode)
	}

	switch v := decoded.(type) {
	case nil:
		return nil, errNullRepresentation
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
		first, ok := v[0].(map[string]any)
		if !ok {
			return nil, errors.Mark(errors.Newf("upsert response row is %T", v[0]), service.ErrResponseDecode)
		}
		return model.Row(first), nil
	default:
		return nil, nil
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
