package middleware

import (
	"net/http"
	"time"

	"travel-admin-api/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware provides request logging with security context
type LoggingMiddleware struct {
	logger zerolog.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: logger,
	}
}

// LogRequests assigns a request id, installs a request scoped logger in the
// context and logs one line per request.
func (lm *LoggingMiddleware) LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		clientIP := ClientIPFromContext(r.Context())
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		reqLogger := lm.logger.With().
			Str("request_id", requestID).
			Str("client_ip", clientIP).
			Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		wrapped := metrics.NewMetricsResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		status := wrapped.StatusCode
		event := reqLogger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = reqLogger.Error()
		case status == http.StatusTooManyRequests:
			event = reqLogger.Warn().Str("security", "rate_limited")
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("user_agent", r.UserAgent()).
			Msg("request completed")
	})
}
