package middleware

import (
	"net/http"
	"strconv"
	"time"

	"travel-admin-api/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no route matched, keeping label cardinality bounded
const unmatchedRoute = "unmatched"

// RouteNamer resolves the route template a request matches
type RouteNamer interface {
	Match(r *http.Request, match *mux.RouteMatch) bool
}

// MetricsHandler records the response duration of every request by route
// template, method and status code.
type MetricsHandler struct {
	Metrics *metrics.Metrics
	Routes  RouteNamer

	// Handler will actually handle requests
	Handler http.Handler
}

// ServeHTTP implements http.Handler
func (h MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mw := metrics.NewMetricsResponseWriter(w)
	route := routeName(h.Routes, r)
	started := time.Now()

	defer func() {
		metrics.StartTimerAt(started, h.Metrics.APIResponseDurationsMilliseconds.With(prometheus.Labels{
			"route":       route,
			"method":      r.Method,
			"status_code": strconv.Itoa(mw.StatusCode),
		})).Finish()
	}()

	h.Handler.ServeHTTP(mw, r)
}

func routeName(routes RouteNamer, r *http.Request) string {
	if routes == nil {
		return unmatchedRoute
	}
	var match mux.RouteMatch
	if !routes.Match(r, &match) || match.Route == nil {
		return unmatchedRoute
	}
	tpl, err := match.Route.GetPathTemplate()
	if err != nil {
		return unmatchedRoute
	}
	return tpl
}
