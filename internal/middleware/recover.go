package middleware

import (
	"net/http"
	"runtime/debug"

	"travel-admin-api/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// PanicHandler runs another http.Handler and recovers from any panics which
// occur, answering 500 with the generic error body.
type PanicHandler struct {
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Routes  RouteNamer

	// Handler to run
	Handler http.Handler
}

// ServeHTTP implements http.Handler
func (h PanicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mw := metrics.NewMetricsResponseWriter(w)

	defer func() {
		recovery := recover()
		if recovery == nil {
			return
		}
		if recovery == http.ErrAbortHandler {
			panic(recovery)
		}

		if h.Metrics != nil {
			h.Metrics.APIHandlerPanicsTotal.With(prometheus.Labels{
				"route":  routeName(h.Routes, r),
				"method": r.Method,
			}).Inc()
		}

		h.Logger.Error().
			Interface("panic", recovery).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Bytes("stack", debug.Stack()).
			Msg("panicked while handling request")

		if mw.WroteHeader() {
			return
		}
		writeJSONError(mw, http.StatusInternalServerError, "Internal server error")
	}()

	h.Handler.ServeHTTP(mw, r)
}
