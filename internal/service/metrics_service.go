package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// announcement workflow.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	approvalsTotal     *prometheus.CounterVec
	deadlinesElapsed   prometheus.Counter
}

// NewMetricsService registers the core Prometheus collectors.
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

	notificationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "announcement_notifications_total",
		Help: "Notification dispatch outcomes per recipient",
	}, []string{"result", "kind"})

	transitionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "announcement_transitions_total",
		Help: "Announcement lifecycle transitions by target status",
	}, []string{"to"})

	approvalsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "announcement_approvals_total",
		Help: "Customer approval decisions",
	}, []string{"decision"})

	deadlinesElapsed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "announcement_deadlines_elapsed_total",
		Help: "Approval deadlines that elapsed with auto-proceed set",
	})

	registry.MustRegister(requestDuration, requestTotal, notificationsTotal, transitionsTotal, approvalsTotal, deadlinesElapsed)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		notificationsTotal: notificationsTotal,
		transitionsTotal:   transitionsTotal,
		approvalsTotal:     approvalsTotal,
		deadlinesElapsed:   deadlinesElapsed,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// IncNotification counts one per-recipient dispatch outcome.
func (s *MetricsService) IncNotification(success bool, reminder bool) {
	if s == nil {
		return
	}
	result := "sent"
	if !success {
		result = "failed"
	}
	kind := "initial"
	if reminder {
		kind = "reminder"
	}
	s.notificationsTotal.WithLabelValues(result, kind).Inc()
}

// IncTransition counts one lifecycle transition.
func (s *MetricsService) IncTransition(to string) {
	if s == nil {
		return
	}
	s.transitionsTotal.WithLabelValues(to).Inc()
}

// IncApproval counts one customer decision.
func (s *MetricsService) IncApproval(decision string) {
	if s == nil {
		return
	}
	s.approvalsTotal.WithLabelValues(decision).Inc()
}

// AddDeadlinesElapsed counts elapsed auto-proceed deadlines.
func (s *MetricsService) AddDeadlinesElapsed(n int) {
	if s == nil || n <= 0 {
		return
	}
	s.deadlinesElapsed.Add(float64(n))
}
