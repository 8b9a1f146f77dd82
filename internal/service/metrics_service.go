package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the completion/certification engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	lessonsCompleted     prometheus.Counter
	coursesCompleted     prometheus.Counter
	attemptsStarted      prometheus.Counter
	attemptsSubmitted    *prometheus.CounterVec
	certificatesTotal    *prometheus.CounterVec
	certificateQueueTime prometheus.Histogram
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	lessonsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lessons_completed_total",
		Help: "Total lesson completion facts written",
	})

	coursesCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courses_completed_total",
		Help: "Total enrollments that reached 100% progress",
	})

	attemptsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_attempts_started_total",
		Help: "Total quiz attempts started",
	})

	attemptsSubmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_attempts_submitted_total",
		Help: "Total quiz attempts submitted",
	}, []string{"passed"})

	certificatesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificates_processed_total",
		Help: "Certificate jobs processed by outcome",
	}, []string{"outcome"})

	certificateQueueTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "certificate_queue_wait_seconds",
		Help:    "Time certificate jobs spend queued before processing",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, lessonsCompleted, coursesCompleted,
		attemptsStarted, attemptsSubmitted, certificatesTotal, certificateQueueTime, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:             registry,
		handler:              handler,
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		lessonsCompleted:     lessonsCompleted,
		coursesCompleted:     coursesCompleted,
		attemptsStarted:      attemptsStarted,
		attemptsSubmitted:    attemptsSubmitted,
		certificatesTotal:    certificatesTotal,
		certificateQueueTime: certificateQueueTime,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordLessonCompleted counts a newly written completion fact.
func (m *MetricsService) RecordLessonCompleted() {
	if m == nil {
		return
	}
	m.lessonsCompleted.Inc()
}

// RecordCourseCompleted counts an enrollment crossing the 100% transition.
func (m *MetricsService) RecordCourseCompleted() {
	if m == nil {
		return
	}
	m.coursesCompleted.Inc()
}

// RecordAttemptStarted counts a started quiz attempt.
func (m *MetricsService) RecordAttemptStarted() {
	if m == nil {
		return
	}
	m.attemptsStarted.Inc()
}

// RecordAttemptSubmitted counts a submitted quiz attempt by outcome.
func (m *MetricsService) RecordAttemptSubmitted(passed bool) {
	if m == nil {
		return
	}
	m.attemptsSubmitted.WithLabelValues(fmt.Sprintf("%t", passed)).Inc()
}

// RecordCertificateOutcome counts a processed certificate job.
func (m *MetricsService) RecordCertificateOutcome(outcome string) {
	if m == nil {
		return
	}
	m.certificatesTotal.WithLabelValues(outcome).Inc()
}

// ObserveCertificateQueueWait records how long a job waited in the queue.
func (m *MetricsService) ObserveCertificateQueueWait(wait time.Duration) {
	if m == nil {
		return
	}
	m.certificateQueueTime.Observe(wait.Seconds())
}
