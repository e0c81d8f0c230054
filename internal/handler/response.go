package handler

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ServiceName is reported by the health endpoint
const ServiceName = "travel-admin-api"

var bearerPrefix = regexp.MustCompile(`(?i)^Bearer\s+`)

// ResponseHelper provides common request and response utilities
type ResponseHelper struct{}

// NewResponseHelper creates a new ResponseHelper instance
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// PaginationMeta describes the page returned by a list call
type PaginationMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ListResponse is the body of a list call
type ListResponse struct {
	Data       any            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// Health status values
const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	healthStatusUp       = "up"
	healthStatusDown     = "down"
)

// HealthData is the data member of the health response
type HealthData struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Timestamp    time.Time         `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// BearerToken extracts the caller token from an Authorization header value.
// A leading "Bearer" and its whitespace are removed case-insensitively and
// the rest is trimmed.
func (rh *ResponseHelper) BearerToken(header string) string {
	return strings.TrimSpace(bearerPrefix.ReplaceAllString(header, ""))
}

// BackendContext returns the context used for backend calls. It keeps the
// request's values but not its cancellation, so a client that disconnects
// mid-request does not abort a write already in flight. Backend calls are
// bounded by their own client timeout.
func (rh *ResponseHelper) BackendContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// CreateHealthCheckData creates health check response data. Any dependency
// that is not up makes the status degraded.
func (rh *ResponseHelper) CreateHealthCheckData(dependencies map[string]string) HealthData {
	status := healthStatusHealthy
	for _, state := range dependencies {
		if state != healthStatusUp {
			status = healthStatusDegraded
		}
	}
	return HealthData{
		Status:       status,
		Service:      ServiceName,
		Timestamp:    time.Now().UTC(),
		Dependencies: dependencies,
	}
}
