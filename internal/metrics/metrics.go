package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersTotal counts completed workflows by terminal status.
	OrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Name:      "orders_total",
		Help:      "Total number of place-order workflows by result status.",
	}, []string{"status"})

	// WorkflowDuration tracks end-to-end orchestration latency.
	WorkflowDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fulfillment",
		Name:      "workflow_duration_ms",
		Help:      "Place-order workflow duration in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"strategy"})

	// MessagesPublished counts broker publishes by exchange and outcome.
	MessagesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Name:      "messages_published_total",
		Help:      "Total messages published, by exchange and confirm outcome.",
	}, []string{"exchange", "outcome"})

	// MessagesConsumed counts consumed deliveries by queue and ack decision.
	MessagesConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Name:      "messages_consumed_total",
		Help:      "Total deliveries processed, by queue and ack decision.",
	}, []string{"queue", "decision"})

	// CircuitBreakerState exposes sync-client breaker state (0 closed, 1 open, 2 half-open).
	CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fulfillment",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per downstream capability.",
	}, []string{"capability"})

	// HTTPRequests counts API requests by handler and status code.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
)

func init() {
	prometheus.MustRegister(
		OrdersTotal,
		WorkflowDuration,
		MessagesPublished,
		MessagesConsumed,
		CircuitBreakerState,
		HTTPRequests,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
