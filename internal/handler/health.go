package handler

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds each dependency probe
const healthCheckTimeout = 2 * time.Second

// HealthChecker reports whether an optional dependency is reachable.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// HealthHandler reports process liveness and the state of optional
// dependencies. It always answers 200; an unreachable dependency marks the
// service degraded.
type HealthHandler struct {
	ErrorHandler   *ErrorHandler
	ResponseHelper *ResponseHelper
	Checks         map[string]HealthChecker
}

// NewHealthHandler creates a new HealthHandler. checks may be nil.
func NewHealthHandler(errorHandler *ErrorHandler, checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{ErrorHandler: errorHandler, ResponseHelper: NewResponseHelper(), Checks: checks}
}

// ServeHTTP implements http.Handler
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var dependencies map[string]string
	if len(h.Checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		dependencies = make(map[string]string, len(h.Checks))
		for name, check := range h.Checks {
			if check.IsHealthy(ctx) {
				dependencies[name] = healthStatusUp
			} else {
				dependencies[name] = healthStatusDown
			}
		}
	}

	data := h.ResponseHelper.CreateHealthCheckData(dependencies)
	message := "Service is healthy"
	if data.Status == healthStatusDegraded {
		message = "Service is degraded"
	}
	h.ErrorHandler.SendSuccessResponse(w, r, http.StatusOK, message, data)
}
