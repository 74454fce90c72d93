// Package metrics provides Prometheus metrics for the posture pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Frame pipeline
	framesProcessed    prometheus.Counter
	framesPartial      *prometheus.CounterVec
	framesDropped      prometheus.Counter
	framesDuplicate    prometheus.Counter
	frameLatency       prometheus.Histogram
	subjectsClassified *prometheus.CounterVec
	subjectsSkipped    prometheus.Counter
	transitions        *prometheus.CounterVec
	trackedSubjects    prometheus.Gauge
	subjectsOn         prometheus.Gauge
	sinceLastFrame     prometheus.Gauge
	stalls             prometheus.Counter

	// Frame queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueue     prometheus.Counter
	queueDequeue     prometheus.Counter
	queueErrors      *prometheus.CounterVec

	// Sinks
	sinkErrors *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "posture",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.framesProcessed = m.counter("frames_processed_total", "Frame pairs run through the pipeline")
	m.framesPartial = m.counterVec("frames_partial_total", "Frame pairs missing one half", "missing")
	m.framesDropped = m.counter("frames_dropped_total", "Frame pairs rejected by a full or closed queue")
	m.framesDuplicate = m.counter("frames_duplicate_total", "Frames ignored because their source id was already accepted")
	m.frameLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "frame_latency_milliseconds",
		Help:        "Time to process one frame pair in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
	m.subjectsClassified = m.counterVec("subjects_classified_total", "Definitive classifier verdicts", "outcome")
	m.subjectsSkipped = m.counter("subjects_skipped_total", "Subjects skipped for insufficient tracking data")
	m.transitions = m.counterVec("transitions_total", "Debounced posture transitions", "kind", "reason")
	m.trackedSubjects = m.gauge("tracked_subjects", "Subjects with a definitive verdict in the last frame")
	m.subjectsOn = m.gauge("subjects_on", "Debounce keys currently On")
	m.sinceLastFrame = m.gauge("seconds_since_last_frame", "Seconds since the last frame with skeleton data")
	m.stalls = m.counter("stalls_total", "Times the frame stream went quiet past the stall timeout")

	m.queueSize = m.gauge("queue_size", "Frame pairs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Frame queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Frame queue fill ratio")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Frame pairs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Frame pairs dequeued")
	m.queueErrors = m.counterVec("queue_errors_total", "Enqueue failures by reason", "reason")

	m.sinkErrors = m.counterVec("sink_errors_total", "Output sink failures", "sink")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and type", "endpoint", "error_type")
}

// RecordFrameProcessed counts a processed frame and observes its latency.
func RecordFrameProcessed(latencyMs float64) {
	globalManager.framesProcessed.Inc()
	globalManager.frameLatency.Observe(latencyMs)
}

// RecordFramePartial counts a frame missing its "color" or "skeleton" half.
func RecordFramePartial(missing string) {
	globalManager.framesPartial.WithLabelValues(missing).Inc()
}

// RecordFrameDropped counts a frame that never reached the pipeline.
func RecordFrameDropped() {
	globalManager.framesDropped.Inc()
}

// RecordSubjectClassified counts a definitive verdict.
func RecordSubjectClassified(outcome string) {
	globalManager.subjectsClassified.WithLabelValues(outcome).Inc()
}

// RecordSubjectsSkipped adds n insufficient-data skips.
func RecordSubjectsSkipped(n int) {
	globalManager.subjectsSkipped.Add(float64(n))
}

// RecordTransition counts a debounced transition.
func RecordTransition(kind, reason string) {
	globalManager.transitions.WithLabelValues(kind, reason).Inc()
}

// UpdateTrackedSubjects sets the definitive subject count of the last frame.
func UpdateTrackedSubjects(n int) {
	globalManager.trackedSubjects.Set(float64(n))
}

// UpdateSubjectsOn sets the number of keys currently On.
func UpdateSubjectsOn(n int) {
	globalManager.subjectsOn.Set(float64(n))
}

// UpdateSecondsSinceLastFrame sets the frame-gap gauge.
func UpdateSecondsSinceLastFrame(sec float64) {
	globalManager.sinceLastFrame.Set(sec)
}

// RecordStall counts a stall episode.
func RecordStall() {
	globalManager.stalls.Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueue.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueError counts an enqueue failure.
func RecordQueueError(reason string) {
	globalManager.queueErrors.WithLabelValues(reason).Inc()
}

// RecordSinkError counts a failed sink delivery.
func RecordSinkError(sink string) {
	globalManager.sinkErrors.WithLabelValues(sink).Inc()
}

// RecordFrameDuplicate counts a redelivered frame that was not queued again.
func RecordFrameDuplicate() {
	globalManager.framesDuplicate.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// GetRegistry returns the registry holding the service metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
