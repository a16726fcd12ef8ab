package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "enrollments_total",
		Help:      "Enrollment attempts by outcome",
	}, []string{"outcome"})

	EmbeddingsStored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "embeddings_stored_total",
		Help:      "Total number of face embeddings written to the identity store",
	})

	FacesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected",
	}, []string{"operation"})

	FacesRecognized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "faces_recognized_total",
		Help:      "Total number of probe faces matched to a known person",
	})

	AttendanceRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "attendance_recorded_total",
		Help:      "Total number of attendance rows written",
	})

	AttendanceDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "attendance_deduplicated_total",
		Help:      "Recognitions not written because of the dedup window",
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "inference_duration_seconds",
		Help:      "Duration of enrollment and matching stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "attendance",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
