package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Job execution metrics
	JobsTotal     *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	JobsExecuting prometheus.Gauge

	// Queue metrics
	QueueDepth         *prometheus.GaugeVec
	JobsSubmittedTotal *prometheus.CounterVec

	// Poller metrics
	PollCyclesTotal     *prometheus.CounterVec
	LookupsTotal        *prometheus.CounterVec
	LastCycleSubmitted  prometheus.Gauge
	TempCleanupFailures prometheus.Counter

	// API metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// registers with the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "auto_deployer"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total number of deployment jobs executed",
			},
			[]string{"exit_code"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration of deployment job execution in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"exit_code"},
		),
		JobsExecuting: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_executing",
				Help:      "Number of deployment jobs currently executing",
			},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Number of jobs waiting in a target queue",
			},
			[]string{"target"},
		),
		JobsSubmittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_submitted_total",
				Help:      "Total number of jobs submitted to the dispatch router",
			},
			[]string{"source"},
		),
		PollCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_cycles_total",
				Help:      "Total number of auto-deploy poll cycles by outcome",
			},
			[]string{"outcome"},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Total number of metadata and feed lookups by status",
			},
			[]string{"kind", "status"},
		),
		LastCycleSubmitted: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_cycle_submitted_jobs",
				Help:      "Number of jobs submitted by the most recent poll cycle",
			},
		),
		TempCleanupFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "temp_cleanup_failures_total",
				Help:      "Total number of temporary resources that could not be removed",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
	}

	return m
}

// RecordJob records a finished job
func (m *Metrics) RecordJob(exitCode string, seconds float64) {
	m.JobsTotal.WithLabelValues(exitCode).Inc()
	m.JobDuration.WithLabelValues(exitCode).Observe(seconds)
}

// IncJobsExecuting increments the executing jobs gauge
func (m *Metrics) IncJobsExecuting() {
	m.JobsExecuting.Inc()
}

// DecJobsExecuting decrements the executing jobs gauge
func (m *Metrics) DecJobsExecuting() {
	m.JobsExecuting.Dec()
}

// SetQueueDepth sets the number of pending jobs for a target
func (m *Metrics) SetQueueDepth(target string, depth float64) {
	m.QueueDepth.WithLabelValues(target).Set(depth)
}

// RecordJobSubmitted counts a submitted job by its source (poller, api, cli)
func (m *Metrics) RecordJobSubmitted(source string) {
	m.JobsSubmittedTotal.WithLabelValues(source).Inc()
}

// RecordPollCycle counts a poll cycle by outcome
func (m *Metrics) RecordPollCycle(outcome string, submitted int) {
	m.PollCyclesTotal.WithLabelValues(outcome).Inc()
	m.LastCycleSubmitted.Set(float64(submitted))
}

// RecordLookup counts a metadata or feed lookup
func (m *Metrics) RecordLookup(kind, status string) {
	m.LookupsTotal.WithLabelValues(kind, status).Inc()
}

// AddTempCleanupFailures counts temporary resources left behind
func (m *Metrics) AddTempCleanupFailures(n int) {
	m.TempCleanupFailures.Add(float64(n))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration
func (m *Metrics) RecordHTTPRequestDuration(method, path string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// IncHTTPRequestsInFlight increments in-flight HTTP requests
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements in-flight HTTP requests
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
