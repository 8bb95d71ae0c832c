package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/etcmint/mintgate/pkg/events"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mintgate_http_requests_total",
			Help: "Total HTTP requests by method, route, and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mintgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	RateLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mintgate_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	AuthFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mintgate_auth_failures_total",
			Help: "Requests rejected for missing or unknown API keys",
		},
	)

	// Operation metrics, fed by the event broker
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mintgate_operations_total",
			Help: "Operation lifecycle transitions by event type",
		},
		[]string{"event"},
	)

	TokensCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mintgate_tokens_created_total",
			Help: "Tokens deployed through this gateway instance",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RateLimitRejections,
		AuthFailures,
		OperationsTotal,
		TokensCreated,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one completed HTTP request.
func ObserveRequest(method, route string, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Recorder subscribes to the event broker and folds operation lifecycle
// events into counters. Stop by cancelling the subscription via
// broker.Unsubscribe or broker.Stop.
func Recorder(broker *events.Broker) {
	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			OperationsTotal.WithLabelValues(string(ev.Type)).Inc()
			if ev.Type == events.EventTokenCreated {
				TokensCreated.Inc()
			}
		}
	}()
}
