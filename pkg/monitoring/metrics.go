package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Backend round-trip metrics
	backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Total number of clinic backend requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	backendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Duration of clinic backend requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Chat metrics
	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total number of chat turns sent",
		},
		[]string{"status"},
	)

	// Upload metrics
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total number of file uploads",
		},
		[]string{"doc_type", "status"},
	)

	// Staging metrics
	stagedBatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "staged_batches_total",
			Help: "Total number of staged file batches handed off",
		},
	)

	stagedFilesPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "staged_files_pending",
			Help: "Number of staged files waiting to be drained",
		},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct{}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	// Register metrics
	prometheus.MustRegister(
		backendRequestsTotal,
		backendRequestDuration,
		chatTurnsTotal,
		uploadsTotal,
		stagedBatchesTotal,
		stagedFilesPending,
	)

	return &MetricsCollector{}
}

// RecordBackendRequest records one backend round trip
func (m *MetricsCollector) RecordBackendRequest(method, endpoint string, statusCode int, duration time.Duration) {
	backendRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	backendRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordChatTurn records one chat send and its outcome
func (m *MetricsCollector) RecordChatTurn(success bool) {
	chatTurnsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordUpload records one file upload and its outcome
func (m *MetricsCollector) RecordUpload(docType string, success bool) {
	uploadsTotal.WithLabelValues(docType, statusLabel(success)).Inc()
}

// RecordStagedBatch records a staging hand-off of n files
func (m *MetricsCollector) RecordStagedBatch(n int) {
	stagedBatchesTotal.Inc()
	stagedFilesPending.Add(float64(n))
}

// RecordDrainedFiles records n staged files leaving the mailbox
func (m *MetricsCollector) RecordDrainedFiles(n int) {
	stagedFilesPending.Sub(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "ok"
	}
	return "failed"
}
