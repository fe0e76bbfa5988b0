package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	namespace = "collab_service"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnectionsTotal  prometheus.Counter
	WSActiveConnections prometheus.Gauge

	// Business metrics
	ActivityEventsTotal    *prometheus.CounterVec
	PostsPublishedTotal    prometheus.Counter
	PostPublishFailedTotal prometheus.Counter
	PresenceOnlineUsers    prometheus.Gauge
	NotificationsCreated   prometheus.Counter
	PostRefreshesTotal     prometheus.Counter

	logger *zap.Logger
}

// New creates and registers all metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, nil)
}

// NewWithLogger creates and registers all metrics with the default registry and a logger
func NewWithLogger(logger *zap.Logger) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	factory := promauto.With(registerer)

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint"},
		),
		WSConnectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "websocket_connections_total",
				Help:      "Total number of WebSocket connections accepted",
			},
		),
		WSActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_active_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		ActivityEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activity_events_total",
				Help:      "Total number of activity events received, by action kind",
			},
			[]string{"action"},
		),
		PostsPublishedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "posts_published_total",
				Help:      "Total number of scheduled posts published",
			},
		),
		PostPublishFailedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "post_publish_failed_total",
				Help:      "Total number of failed publish attempts",
			},
		),
		PresenceOnlineUsers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "presence_online_users",
				Help:      "Number of users currently considered online",
			},
		),
		NotificationsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_created_total",
				Help:      "Total number of notifications persisted",
			},
		),
		PostRefreshesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "post_refreshes_total",
				Help:      "Total number of debounced scheduled-post refetches",
			},
		),
		logger: logger,
	}
}

// safeExecute runs fn and recovers from panics so that metric recording can
// never take down the caller.
func (m *Metrics) safeExecute(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("metrics operation panicked",
				zap.String("operation", name),
				zap.Any("panic", r))
		}
	}()
	fn()
}
