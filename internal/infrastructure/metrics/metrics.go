package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drawing-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draftlab",
			Subsystem: "drawing_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Upload counters
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draftlab",
			Subsystem: "drawing_api",
			Name:      "uploads_total",
			Help:      "Total drawing uploads",
		},
		[]string{"file_type", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draftlab",
			Subsystem: "drawing_api",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded",
		},
		[]string{"file_type"},
	)

	// Job lifecycle
	JobsEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "draftlab",
			Subsystem: "drawing_api",
			Name:      "jobs_enqueued_total",
			Help:      "Total analysis jobs admitted to the queue",
		},
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draftlab",
			Subsystem: "drawing_api",
			Name:      "jobs_finished_total",
			Help:      "Total analysis jobs reaching a terminal state",
		},
		[]string{"status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "draftlab",
			Subsystem: "drawing_api",
			Name:      "job_duration_seconds",
			Help:      "Enqueue-to-terminal job duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	// Engine calls
	EngineCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draftlab",
			Subsystem: "drawing_api",
			Name:      "engine_calls_total",
			Help:      "Total analysis engine invocations",
		},
		[]string{"backend", "status"},
	)

	EngineCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "draftlab",
			Subsystem: "drawing_api",
			Name:      "engine_call_duration_seconds",
			Help:      "Analysis engine call duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"backend"},
	)

	// Exports
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draftlab",
			Subsystem: "drawing_api",
			Name:      "exports_total",
			Help:      "Total result exports",
		},
		[]string{"format", "status"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// RecordUpload records a drawing upload.
func RecordUpload(fileType, status string, bytes int64) {
	UploadsTotal.WithLabelValues(fileType, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(fileType).Add(float64(bytes))
	}
}

// RecordJobEnqueued records a job admission.
func RecordJobEnqueued() {
	JobsEnqueuedTotal.Inc()
}

// RecordJobFinished records a terminal job.
func RecordJobFinished(status string, durationSec float64) {
	JobsFinishedTotal.WithLabelValues(status).Inc()
	JobDuration.WithLabelValues(status).Observe(durationSec)
}

// RecordEngineCall records one engine invocation.
func RecordEngineCall(backend, status string, durationSec float64) {
	EngineCallsTotal.WithLabelValues(backend, status).Inc()
	EngineCallDuration.WithLabelValues(backend).Observe(durationSec)
}

// RecordExport records a result export.
func RecordExport(format, status string) {
	ExportsTotal.WithLabelValues(format, status).Inc()
}
