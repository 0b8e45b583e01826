// Package metrics provides Prometheus metrics for the hoopfuse engine and service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the hoopfuse service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Fusion Metrics - what the engine produced and how
	fusionRuns     *prometheus.CounterVec
	fusionDuration prometheus.Histogram
	eventsEmitted  *prometheus.CounterVec
	eventsMerged   prometheus.Counter
	eventsDropped  prometheus.Counter
	fallbacks      *prometheus.CounterVec
	ingestDropped  *prometheus.CounterVec

	// Job Pipeline Metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	jobsEnqueued       prometheus.Counter
	jobsRejected       *prometheus.CounterVec
	jobsCompleted      *prometheus.CounterVec
	jobLatency         prometheus.Histogram
	workerCount        prometheus.Gauge
	storeOperations    *prometheus.CounterVec
	storeRecordsStored prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Process-wide manager and the registry it writes to. Both are replaced
// together by Configure.
var (
	global         atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // registry served on /healthz
)

func init() { //nolint:gochecknoinits // default manager for packages that record before Configure
	Configure()
}

// Configure installs a fresh manager built from opts on a new registry. Call
// it at startup, before handlers capture GetRegistry.
func Configure(opts ...Option) *Manager {
	registry := prometheus.NewRegistry()
	m := NewManager(append([]Option{WithRegistry(registry)}, opts...)...)
	customRegistry.Store(registry)
	global.Store(m)
	return m
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hoopfuse",
		subsystem:        "fusion",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.fusionRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("runs_total"),
		Help:        "Total number of fusion runs by outcome",
		ConstLabels: labels,
	}, []string{"status"})

	m.fusionDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("duration_milliseconds"),
		Help:        "Wall time of one fusion run in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.eventsEmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("events_emitted_total"),
		Help:        "Events surviving smoothing and the confidence floor, by kind",
		ConstLabels: labels,
	}, []string{"kind"})

	m.eventsMerged = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("events_merged_total"),
		Help:        "Events absorbed by temporal smoothing",
		ConstLabels: labels,
	})

	m.eventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("events_dropped_total"),
		Help:        "Events dropped below the confidence floor",
		ConstLabels: labels,
	})

	m.fallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fallbacks_total"),
		Help:        "Insufficient-signal fallbacks engaged, by detector and fallback strategy",
		ConstLabels: labels,
	}, []string{"detector", "fallback"})

	m.ingestDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("ingest_dropped_total"),
		Help:        "Malformed detections or frames filtered at ingestion, by stream",
		ConstLabels: labels,
	}, []string{"stream"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_size"),
		Help:        "Current number of queued fusion jobs",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_capacity"),
		Help:        "Maximum number of queued fusion jobs",
		ConstLabels: labels,
	})

	m.jobsEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("jobs_enqueued_total"),
		Help:        "Fusion jobs accepted into the queue",
		ConstLabels: labels,
	})

	m.jobsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("jobs_rejected_total"),
		Help:        "Fusion jobs refused by the queue, by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.jobsCompleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("jobs_completed_total"),
		Help:        "Fusion jobs finished by workers, by status",
		ConstLabels: labels,
	}, []string{"status"})

	m.jobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("job_latency_milliseconds"),
		Help:        "Time from dequeue to stored result in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_count"),
		Help:        "Number of fusion workers",
		ConstLabels: labels,
	})

	m.storeOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("store_operations_total"),
		Help:        "Result store operations by operation and status",
		ConstLabels: labels,
	}, []string{"op", "status"})

	m.storeRecordsStored = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("store_records"),
		Help:        "Number of job results held by the store",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// RecordFusionRun counts one run with its outcome and duration.
func (m *Manager) RecordFusionRun(status string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.fusionRuns.WithLabelValues(status).Inc()
	m.fusionDuration.Observe(durationMs)
}

// RecordEventsEmitted adds n emitted events of kind.
func (m *Manager) RecordEventsEmitted(kind string, n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.eventsEmitted.WithLabelValues(kind).Add(float64(n))
}

// RecordEventsMerged adds n events absorbed by smoothing.
func (m *Manager) RecordEventsMerged(n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.eventsMerged.Add(float64(n))
}

// RecordEventsDropped adds n events removed by the floor.
func (m *Manager) RecordEventsDropped(n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.eventsDropped.Add(float64(n))
}

// RecordFallback counts one insufficient-signal fallback.
func (m *Manager) RecordFallback(detector, fallback string) {
	if !m.enabled {
		return
	}
	m.fallbacks.WithLabelValues(detector, fallback).Inc()
}

// RecordIngestDropped adds n malformed items dropped from stream.
func (m *Manager) RecordIngestDropped(stream string, n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.ingestDropped.WithLabelValues(stream).Add(float64(n))
}

// RefreshInterval is how often callers should sample gauge-style metrics.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Registry returns the registerer the manager writes to.
func (m *Manager) Registry() prometheus.Registerer { return m.registry }

// RecordFusionRun records a run on the global manager.
func RecordFusionRun(status string, durationMs float64) {
	Global().RecordFusionRun(status, durationMs)
}

// RecordEventsEmitted records emitted events on the global manager.
func RecordEventsEmitted(kind string, n int) { Global().RecordEventsEmitted(kind, n) }

// RecordEventsMerged records merged events on the global manager.
func RecordEventsMerged(n int) { Global().RecordEventsMerged(n) }

// RecordEventsDropped records dropped events on the global manager.
func RecordEventsDropped(n int) { Global().RecordEventsDropped(n) }

// RecordFallback records a fallback on the global manager.
func RecordFallback(detector, fallback string) { Global().RecordFallback(detector, fallback) }

// RecordIngestDropped records ingestion drops on the global manager.
func RecordIngestDropped(stream string, n int) { Global().RecordIngestDropped(stream, n) }

// UpdateQueueSize sets the current job queue length.
func UpdateQueueSize(size int) {
	Global().queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the job queue capacity.
func UpdateQueueCapacity(capacity int) {
	Global().queueCapacity.Set(float64(capacity))
}

// RecordJobEnqueued counts an accepted job.
func RecordJobEnqueued() {
	Global().jobsEnqueued.Inc()
}

// RecordJobRejected counts a refused job.
func RecordJobRejected(reason string) {
	Global().jobsRejected.WithLabelValues(reason).Inc()
}

// RecordJobCompleted counts a finished job and its latency.
func RecordJobCompleted(status string, latencyMs float64) {
	Global().jobsCompleted.WithLabelValues(status).Inc()
	Global().jobLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	Global().workerCount.Set(float64(count))
}

// RecordStoreOperation counts a result store operation.
func RecordStoreOperation(op, status string) {
	Global().storeOperations.WithLabelValues(op, status).Inc()
}

// UpdateStoreRecords sets the number of stored results.
func UpdateStoreRecords(count int) {
	Global().storeRecordsStored.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	Global().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	Global().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	Global().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) {
	Global().systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	Global().systemGCPauseTime.Observe(pauseMs)
}

// Global returns the process-wide manager.
func Global() *Manager { return global.Load() }

// GetRegistry returns the custom registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
