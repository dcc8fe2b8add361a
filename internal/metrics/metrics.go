package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for monitoring service health and performance
var (
	OrdersReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_notifications_total",
			Help: "Total number of order notifications accepted",
		},
	)

	RequestsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_rejected_total",
			Help: "Total number of requests rejected at the admission gate or intake",
		},
		[]string{"reason"},
	)

	BrewOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brew_orders_total",
			Help: "Total number of orders processed by the brew pipeline",
		},
		[]string{"outcome"},
	)

	BrewDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brew_duration_seconds",
			Help:    "Duration of the brew pipeline per order",
			Buckets: prometheus.DefBuckets,
		},
	)

	BrewQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "brew_queue_depth",
			Help: "Number of orders waiting in the brew queue",
		},
	)

	StatusPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_publish_total",
			Help: "Total number of status publish attempts to the remote store",
		},
		[]string{"result"},
	)

	RateLimitClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limit_clients",
			Help: "Number of client windows currently tracked by the rate limiter",
		},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(OrdersReceivedTotal)
	prometheus.MustRegister(RequestsRejectedTotal)
	prometheus.MustRegister(BrewOrdersTotal)
	prometheus.MustRegister(BrewDurationSeconds)
	prometheus.MustRegister(BrewQueueDepth)
	prometheus.MustRegister(StatusPublishTotal)
	prometheus.MustRegister(RateLimitClients)
}
