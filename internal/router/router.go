package router

import (
	"net/http"

	"travel-admin-api/internal/config"
	"travel-admin-api/internal/handler"
	"travel-admin-api/internal/metrics"
	"travel-admin-api/internal/middleware"
	apperrors "travel-admin-api/pkg/errors"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Archived endpoint names, served under /api/
var archivedEndpoints = []string{"create-invoice", "create-order"}

// Options carries the shared dependencies of the HTTP stack
type Options struct {
	Config *config.Config
	Logger zerolog.Logger

	// Metrics and Gatherer enable request metrics and the /metrics endpoint
	// when both are set.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// HealthChecks are probed by /api/health, keyed by dependency name.
	HealthChecks map[string]handler.HealthChecker
}

// NewRouter creates the router, registers every route and wraps it in the
// middleware chain.
func NewRouter(h handler.LaptopRequestHandlerInterface, opts Options) http.Handler {
	r := mux.NewRouter()
	errorHandler := handler.NewErrorHandler(opts.Logger)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		errorHandler.HandleError(w, req, apperrors.NotFoundError("Route"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		errorHandler.HandleError(w, req, apperrors.NewAppError(apperrors.ErrorCodeMethodNotAllowed, "Method not allowed"))
	})

	api := r.PathPrefix("/api").Subrouter()

	// Handlers dispatch on method themselves so the 405 carries an Allow header
	api.HandleFunc("/upsert-laptop", h.UpsertLaptopHandler)
	api.HandleFunc("/laptop-requests", h.ListLaptopRequestsHandler)
	api.HandleFunc("/laptop-requests/{id}", h.DeleteLaptopRequestHandler)

	archivedPaths := make([]string, 0, len(archivedEndpoints))
	for _, name := range archivedEndpoints {
		api.Handle("/"+name, handler.NewArchivedHandler(name, errorHandler))
		archivedPaths = append(archivedPaths, "/api/"+name)
	}

	api.Handle("/health", handler.NewHealthHandler(errorHandler, opts.HealthChecks)).Methods(http.MethodGet)

	metricsEnabled := opts.Metrics != nil && opts.Gatherer != nil && opts.Config.Server.EnableMetrics
	if metricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	securityMW := middleware.NewSecurityMiddleware(&opts.Config.Security)
	securityMW.AllowMethods("/api/laptop-requests", "GET, DELETE, OPTIONS")
	// Archived endpoints answer 410 to every method, preflight included
	securityMW.PassPreflight(archivedPaths...)
	loggingMW := middleware.NewLoggingMiddleware(opts.Logger)

	var chain http.Handler = r
	chain = securityMW.RequestTimeout(chain)
	chain = securityMW.RateLimit(chain)
	chain = securityMW.CORS(chain)
	chain = securityMW.SecurityHeaders(chain)
	chain = loggingMW.LogRequests(chain)
	chain = securityMW.TrustedProxy(chain)
	if metricsEnabled {
		chain = middleware.MetricsHandler{Metrics: opts.Metrics, Routes: r, Handler: chain}
	}

	return middleware.PanicHandler{
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
		Routes:  r,
		Handler: chain,
	}
}
