package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "travel_admin_api"

// Metrics holds all the available internal metrics
type Metrics struct {
	// APIResponseDurationsMilliseconds is the number of milliseconds it takes to
	// complete API responses.
	//
	// Labels: route (matched route template), method (request HTTP method),
	// status_code (response HTTP status code)
	APIResponseDurationsMilliseconds *prometheus.HistogramVec

	// APIHandlerPanicsTotal is the number of times HTTP request handlers have panicked.
	//
	// Labels: route, method
	APIHandlerPanicsTotal *prometheus.CounterVec

	// UpstreamRequestsTotal counts calls made to the database backend.
	//
	// Labels: operation (authenticate, check_admin, upsert, list, delete),
	// outcome (ok, error)
	UpstreamRequestsTotal *prometheus.CounterVec

	// UpstreamDurationsMilliseconds is the duration of calls to the database backend.
	//
	// Labels: operation
	UpstreamDurationsMilliseconds *prometheus.HistogramVec
}

// NewMetrics creates a Metrics struct with all the Prometheus recorders
// initialized and registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		APIResponseDurationsMilliseconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "response_durations_milliseconds",
			Help:      "Time, in milliseconds, it took to respond to API requests",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"route", "method", "status_code"}),
		APIHandlerPanicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "handler_panics_total",
			Help:      "Total number of HTTP handlers which have panicked while processing a request",
		}, []string{"route", "method"}),
		UpstreamRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of calls made to the database backend",
		}, []string{"operation", "outcome"}),
		UpstreamDurationsMilliseconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_durations_milliseconds",
			Help:      "Time, in milliseconds, calls to the database backend took",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.APIResponseDurationsMilliseconds,
		m.APIHandlerPanicsTotal,
		m.UpstreamRequestsTotal,
		m.UpstreamDurationsMilliseconds,
	)

	return m
}

// ObserveUpstream records one backend call. Safe on a nil *Metrics.
func (m *Metrics) ObserveUpstream(operation string, started time.Time, err error) {
	if m == nil {
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequestsTotal.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
	StartTimerAt(started, m.UpstreamDurationsMilliseconds.With(prometheus.Labels{"operation": operation})).Finish()
}

// StartTimerAt starts a Timer for the provided Prometheus observer from
// started. Calling .Finish() on the returned timer records the time elapsed
// in milliseconds.
func StartTimerAt(started time.Time, observer prometheus.Observer) Timer {
	return Timer{
		startTime: started,
		observer:  observer,
	}
}
