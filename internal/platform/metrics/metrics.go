package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the Prometheus registry for the service. A nil *Collector
// is valid and records nothing.
type Collector struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	overdue         *prometheus.GaugeVec
	jobRuns         *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

func New() *Collector {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evaluation_submissions_total",
		Help: "Evaluation submit attempts by outcome",
	}, []string{"outcome"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cycle_transitions_total",
		Help: "Cycle status transitions by target stage",
	}, []string{"stage"})

	overdue := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cycle_overdue_statuses",
		Help: "Overdue employee statuses per cycle after the last sweep",
	}, []string{"cycle_id"})

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Background job runs by type and status",
	}, []string{"job", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Summary cache lookups by result",
	}, []string{"result"})

	registry.MustRegister(
		requestDuration, requestTotal, submissions, transitions, overdue, jobRuns, cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		transitions:     transitions,
		overdue:         overdue,
		jobRuns:         jobRuns,
		cacheLookups:    cacheLookups,
	}
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return c.handler
}

func (c *Collector) Record(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	label := strconv.Itoa(status)
	c.requestDuration.WithLabelValues(method, route, label).Observe(duration.Seconds())
	c.requestTotal.WithLabelValues(method, route, label).Inc()
}

func (c *Collector) Submission(outcome string) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(outcome).Inc()
}

func (c *Collector) Transition(stage string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(stage).Inc()
}

func (c *Collector) Overdue(cycleID string, count int) {
	if c == nil {
		return
	}
	c.overdue.WithLabelValues(cycleID).Set(float64(count))
}

func (c *Collector) JobRun(job, status string) {
	if c == nil {
		return
	}
	c.jobRuns.WithLabelValues(job, status).Inc()
}

func (c *Collector) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}
