package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPRequests counts HTTP requests by method, path and status
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sportsfeed_http_requests_total",
		Help: "Total number of HTTP requests handled",
	},
	[]string{"method", "path", "status"},
)

// HTTPLatency records latency distribution for HTTP requests
var HTTPLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "sportsfeed_http_request_latency_seconds",
		Help:    "Latency in seconds to serve HTTP requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sportsfeed_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sportsfeed_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sportsfeed_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

// WebSocket metrics
var (
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sportsfeed_ws_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	WSMessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sportsfeed_ws_messages_sent_total",
			Help: "Total number of WebSocket messages broadcast",
		},
	)
)

// NotificationsCreated counts created notifications by type
var NotificationsCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sportsfeed_notifications_created_total",
		Help: "Total number of notifications created",
	},
	[]string{"type"},
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPLatency,
		DBOpenConns,
		DBIdleConns,
		DBInUseConns,
		WSConnections,
		WSMessagesSent,
		NotificationsCreated,
	)
}
