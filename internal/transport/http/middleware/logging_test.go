package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrreview/internal/platform/metrics"
)

func TestLoggerRecordsRoutePattern(t *testing.T) {
	collector := metrics.New()
	r := chi.NewRouter()
	r.Use(Logger(collector))
	r.Get("/cycles/{cycleID}/summary", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cycles/abc/summary", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	out := httptest.NewRecorder()
	collector.Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `route="/cycles/{cycleID}/summary",status="418"`)
	assert.NotContains(t, string(body), `/cycles/abc/summary`)
}

func TestRecovererReturnsEnvelope(t *testing.T) {
	handler := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"internal"`)
	assert.NotContains(t, rec.Body.String(), "boom")
}
