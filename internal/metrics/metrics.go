// Package metrics provides Prometheus metrics for the relay.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Webhook forward outcomes.
const (
	OutcomeForwarded   = "forwarded"
	OutcomeRejected    = "rejected"
	OutcomeUnreachable = "unreachable"
)

// Metrics holds all Prometheus metric collectors for the relay.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	DownstreamDuration  *prometheus.HistogramVec
	DownstreamResponses *prometheus.CounterVec

	WebhookForwards *prometheus.CounterVec
	Redirects       *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubspot_relay_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hubspot_relay_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hubspot_relay_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		DownstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hubspot_relay_downstream_request_duration_seconds",
			Help:    "Downstream call latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),

		DownstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubspot_relay_downstream_responses_total",
			Help: "Total downstream responses by method and status code.",
		}, []string{"method", "status_code"}),

		WebhookForwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubspot_relay_webhook_forwards_total",
			Help: "Webhook forward attempts by event and outcome.",
		}, []string{"event", "outcome"}),

		Redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubspot_relay_redirects_total",
			Help: "Redirects issued by route.",
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.DownstreamDuration,
		m.DownstreamResponses,
		m.WebhookForwards,
		m.Redirects,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownPrefixes lists the allowed path label values (bounded cardinality).
var knownPrefixes = []string{"/health", "/oauth/hubspot", "/webhooks/hubspot", "/cards", "/metrics"}

// NormalizePath returns a bounded path label for Prometheus metrics.
func NormalizePath(path string) string {
	for _, prefix := range knownPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "other"
}
