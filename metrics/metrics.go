// Package metrics provides Prometheus metrics for the wiki bridge MCP server.
// It tracks tool call counts and latencies, upstream wiki API traffic,
// resolution probe outcomes, and egress guard rejections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "wiki_bridge"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures tool call latency distribution
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Tool call latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"tool"})

	// RequestsInFlight tracks currently executing tool calls
	RequestsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of tool calls currently being processed",
	}, []string{"tool"})

	// UpstreamRequestsTotal counts outbound MediaWiki API requests
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "upstream_requests_total",
		Help:      "Outbound MediaWiki API requests by host, action and status",
	}, []string{"host", "action", "status"})

	// UpstreamLatency measures outbound MediaWiki API call latency
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "upstream_latency_seconds",
		Help:      "Outbound MediaWiki API latency by action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// ProbesTotal counts resolution probes by domain suffix and outcome
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "probes_total",
		Help:      "Resolution probes by domain suffix and outcome",
	}, []string{"suffix", "outcome"})

	// EgressBlocked counts requests rejected by the egress allowlist
	EgressBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "egress_blocked_total",
		Help:      "Outbound requests blocked by the host allowlist",
	})

	// PanicsRecovered counts recovered panics in tool handlers
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})
)

// RecordRequest records a completed tool call with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RequestsTotal.WithLabelValues(tool, status).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordUpstream records an outbound MediaWiki API call
func RecordUpstream(host, action string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(host, action, status).Inc()
	UpstreamLatency.WithLabelValues(action).Observe(duration)
}

// RecordProbe records one resolution probe outcome ("hit" or "miss")
func RecordProbe(suffix, outcome string) {
	ProbesTotal.WithLabelValues(suffix, outcome).Inc()
}
