package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resultsink_messages_total",
			Help: "Total number of bus messages processed, by format family and status (count)",
		},
		[]string{"format", "status"},
	)

	DroppedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resultsink_dropped_messages_total",
			Help: "Total number of messages dropped without submission, by reason (count)",
		},
		[]string{"reason"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resultsink_submissions_total",
			Help: "Total number of results store requests, by HTTP status (count)",
		},
		[]string{"method", "status"},
	)

	SubmissionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resultsink_submission_duration_ms",
			Help:    "Results store request duration in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		},
		[]string{"method"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resultsink_retry_attempts_total",
			Help: "Total number of message processing retries (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resultsink_dlq_messages_total",
			Help: "Total number of messages routed to the dead letter queue (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resultsink_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	RateLimitedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resultsink_rate_limited_requests_total",
			Help: "Total number of monitoring API requests rejected by rate limiting (count)",
		},
		[]string{"path"},
	)
)

func RegisterUpdaterMetrics() {
	prometheus.MustRegister(
		MessagesTotal,
		DroppedMessagesTotal,
		SubmissionsTotal,
		SubmissionDuration,
	)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(
		RetryAttemptsTotal,
		DLQMessagesTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
}

func RegisterServerMetrics() {
	prometheus.MustRegister(RateLimitedRequestsTotal)
}

// ObserveSubmission records a single results store request.
func ObserveSubmission(method string, statusCode int, durationMs float64) {
	SubmissionsTotal.WithLabelValues(method, fmt.Sprintf("%d", statusCode)).Inc()
	SubmissionDuration.WithLabelValues(method).Observe(durationMs)
}
