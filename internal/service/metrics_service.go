package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// database statements and learner registrations.
type MetricsService struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestDuration      *prometheus.HistogramVec
	requestTotal         *prometheus.CounterVec
	dbQueryDuration      *prometheus.HistogramVec
	registrations        prometheus.Counter
	registeredEnrollment prometheus.Counter
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

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database statements",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	registrations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "learner_registrations_total",
		Help: "Learners registered",
	})

	registeredEnrollment := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "learner_enrollments_registered_total",
		Help: "Enrollments created by learner registration",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, registrations, registeredEnrollment, goroutines)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		dbQueryDuration:      dbQueryDuration,
		registrations:        registrations,
		registeredEnrollment: registeredEnrollment,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveDBQuery records database statement timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordLearnerRegistration counts a registered learner and its enrollments.
func (m *MetricsService) RecordLearnerRegistration(enrollments int) {
	if m == nil {
		return
	}
	m.registrations.Inc()
	if enrollments > 0 {
		m.registeredEnrollment.Add(float64(enrollments))
	}
}
