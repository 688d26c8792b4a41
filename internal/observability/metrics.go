package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	toolCallsTotal   *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec

	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec

	slotFallbacksTotal *prometheus.CounterVec

	rpcConnections prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			toolCallsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "apigate_tool_calls_total",
					Help: "Total tool calls by tool and outcome kind.",
				},
				[]string{"tool", "kind"},
			),
			toolCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "apigate_tool_call_duration_seconds",
					Help:    "Tool call duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			upstreamRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "apigate_upstream_requests_total",
					Help: "Total upstream API requests by api, method and status code (0 on transport failure).",
				},
				[]string{"api", "method", "status"},
			),
			upstreamRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "apigate_upstream_request_duration_seconds",
					Help:    "Upstream API request duration in seconds by api.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"api"},
			),
			slotFallbacksTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "apigate_aggregate_slot_fallbacks_total",
					Help: "Aggregate slots that resolved to their fallback value.",
				},
				[]string{"aggregate", "slot"},
			),
			rpcConnections: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "apigate_rpc_connections",
					Help: "Current websocket RPC connections.",
				},
			),
		}

		prometheus.MustRegister(
			m.toolCallsTotal,
			m.toolCallDuration,
			m.upstreamRequestsTotal,
			m.upstreamRequestDuration,
			m.slotFallbacksTotal,
			m.rpcConnections,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordToolCall records one dispatched call. kind is empty on success.
func RecordToolCall(tool, kind string, duration time.Duration) {
	m := getMetrics()
	if kind == "" {
		kind = "ok"
	}
	m.toolCallsTotal.WithLabelValues(tool, kind).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func RecordUpstreamRequest(api, method string, status int, duration time.Duration) {
	m := getMetrics()
	m.upstreamRequestsTotal.WithLabelValues(api, method, strconv.Itoa(status)).Inc()
	m.upstreamRequestDuration.WithLabelValues(api).Observe(duration.Seconds())
}

func RecordSlotFallback(aggregate, slot string) {
	m := getMetrics()
	m.slotFallbacksTotal.WithLabelValues(aggregate, slot).Inc()
}

func SetRPCConnections(count int) {
	m := getMetrics()
	m.rpcConnections.Set(float64(count))
}
