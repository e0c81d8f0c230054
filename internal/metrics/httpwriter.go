package metrics

import (
	"net/http"
)

// MetricsResponseWriter wraps an net/http.ResponseWriter and records the status
// code written through it.
type MetricsResponseWriter struct {
	http.ResponseWriter

	// StatusCode is the last status passed to WriteHeader, http.StatusOK until then
	StatusCode int

	wroteHeader bool
}

// NewMetricsResponseWriter wraps w.
func NewMetricsResponseWriter(w http.ResponseWriter) *MetricsResponseWriter {
	return &MetricsResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

// WriteHeader records code and calls ResponseWriter.WriteHeader
func (r *MetricsResponseWriter) WriteHeader(code int) {
	if !r.wroteHeader {
		r.StatusCode = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Write marks the header as written and calls ResponseWriter.Write
func (r *MetricsResponseWriter) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// WroteHeader reports whether a status or body has been sent.
func (r *MetricsResponseWriter) WroteHeader() bool {
	return r.wroteHeader
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (r *MetricsResponseWriter) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
