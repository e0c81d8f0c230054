// Package app assembles the HTTP application from configuration. Both the
// long-running server and the serverless entrypoint use it.
package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"travel-admin-api/internal/auth"
	"travel-admin-api/internal/backend"
	"travel-admin-api/internal/config"
	"travel-admin-api/internal/database"
	"travel-admin-api/internal/handler"
	"travel-admin-api/internal/metrics"
	"travel-admin-api/internal/notification"
	"travel-admin-api/internal/repository"
	"travel-admin-api/internal/router"
	"travel-admin-api/internal/service"
	notificationadapter "travel-admin-api/internal/service/notification"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// jwtLeeway tolerates clock skew between the token issuer and this service
const jwtLeeway = 5 * time.Second

// App is the assembled application
type App struct {
	Handler  http.Handler
	Registry *prometheus.Registry

	db *sql.DB
}

// Option customizes New.
type Option func(*options)

type options struct {
	httpClient          *http.Client
	db                  *sql.DB
	inlineNotifyTimeout time.Duration
}

// WithHTTPClient sets the client used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithDB supplies an open pool for the postgres driver instead of dialing one.
func WithDB(db *sql.DB) Option {
	return func(o *options) { o.db = db }
}

// WithInlineNotifications delivers notifications before each response is
// written, bounded by timeout. The function runtime needs it because work
// left running after a response may never complete.
func WithInlineNotifications(timeout time.Duration) Option {
	return func(o *options) { o.inlineNotifyTimeout = timeout }
}

// New wires every component selected by cfg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	client := backend.NewClient(backend.Config{
		URL:        cfg.Backend.URL,
		ServiceKey: cfg.Backend.ServiceKey,
		Timeout:    cfg.Backend.Timeout,
	}, backend.WithHTTPClient(o.httpClient), backend.WithLogger(logger), backend.WithMetrics(m))

	a := &App{Registry: reg}

	var authenticator service.Authenticator
	switch cfg.Backend.AuthMode {
	case config.AuthModeJWT:
		authenticator = auth.NewJWTAuthenticator(cfg.Backend.JWTSecret, jwtLeeway)
	case config.AuthModeRemote:
		authenticator = client
	default:
		return nil, errors.Newf("unknown auth mode %q", cfg.Backend.AuthMode)
	}

	var (
		admins service.AdminDirectory
		store  service.LaptopRequestStore
	)
	switch cfg.Backend.Driver {
	case config.DriverREST:
		admins, store = client, client
	case config.DriverPostgres:
		db := o.db
		if db == nil {
			var err error
			db, err = database.InitDB(ctx, cfg)
			if err != nil {
				return nil, errors.Wrap(err, "initialize database")
			}
			a.db = db
		}
		admins = repository.NewAdminRepository(db)
		store = repository.NewLaptopRequestRepository(db)
	default:
		return nil, errors.Newf("unknown backend driver %q", cfg.Backend.Driver)
	}

	var (
		notifier     service.NotificationService
		healthChecks map[string]handler.HealthChecker
	)
	if cfg.NotificationService.URL != "" {
		webhook := notification.NewNotifier(notification.NotificationConfig{
			URL:            cfg.NotificationService.URL,
			Timeout:        cfg.NotificationService.Timeout,
			RetryAttempts:  cfg.NotificationService.RetryAttempts,
			RetryDelay:     cfg.NotificationService.RetryDelay,
			MaxPayloadSize: cfg.NotificationService.MaxPayloadSize,
		}, logger)
		notifier = notificationadapter.NewServiceAdapter(webhook)
		healthChecks = map[string]handler.HealthChecker{"notifications": webhook}
	}

	var serviceOpts []service.Option
	if o.inlineNotifyTimeout > 0 {
		serviceOpts = append(serviceOpts, service.WithInlineNotifications(o.inlineNotifyTimeout))
	}

	svc := service.NewLaptopRequestService(authenticator, admins, store, notifier, logger, serviceOpts...)
	h := handler.NewLaptopRequestHandler(svc, cfg.Backend.Check, cfg.Server.MaxBodyBytes, logger)

	a.Handler = router.NewRouter(h, router.Options{
		Config:   cfg,
		Logger:   logger,
		Metrics:      m,
		Gatherer:     reg,
		HealthChecks: healthChecks,
	})

	logger.Info().
		Str("driver", cfg.Backend.Driver).
		Str("auth_mode", cfg.Backend.AuthMode).
		Bool("notifications", notifier != nil).
		Bool("backend_configured", cfg.Backend.Check() == nil).
		Msg("application assembled")

	return a, nil
}

// Close releases the database pool opened by New, if any.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
