package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrument_LabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/api/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/api/users/1", "/api/users/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `newsfeed_http_requests_total{method="GET",route="/api/users/{id}",status="418"} 2`)
	assert.Contains(t, body, `newsfeed_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `newsfeed_http_request_duration_seconds_count{method="GET",route="/api/users/{id}"} 2`)
}

func TestHandler_ExposesGauge(t *testing.T) {
	m := New()
	require.NoError(t, m.RegisterGauge("verification_codes_pending", "Pending codes.", func() float64 { return 3 }))
	assert.Error(t, m.RegisterGauge("verification_codes_pending", "Pending codes.", func() float64 { return 3 }), "duplicate registration")

	assert.Contains(t, scrape(t, m), "newsfeed_verification_codes_pending 3")
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
