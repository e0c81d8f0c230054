package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newWebhook starts a server that forwards every decoded notification to out
func newWebhook(t *testing.T, out chan<- map[string]any) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			return
		}
		var n map[string]any
		if err := json.NewDecoder(r.Body).Decode(&n); err == nil {
			out <- n
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(server.Close)
	return server.URL
}
