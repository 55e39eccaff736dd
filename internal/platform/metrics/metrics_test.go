package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.Submission("submitted")
	c.Submission("submitted")
	c.Submission("already_locked")
	c.Transition("feedback")
	c.Overdue("cycle-1", 3)
	c.JobRun("overdue_sweep", "completed")
	c.CacheLookup(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.submissions.WithLabelValues("submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.submissions.WithLabelValues("already_locked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("feedback")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.overdue.WithLabelValues("cycle-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("hit")))
}

func TestHandlerExposesRequests(t *testing.T) {
	c := New()
	c.Record(http.MethodGet, "/api/v1/cycles/{cycleID}/summary", http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",route="/api/v1/cycles/{cycleID}/summary",status="200"} 1`)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Record(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	c.Submission("submitted")
	c.Transition("pdi")
	c.Overdue("x", 1)
	c.JobRun("x", "failed")
	c.CacheLookup(false)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
