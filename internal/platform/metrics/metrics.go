package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// once 用来保证指标只注册一次。
	// Prometheus 的 registry 不允许重复注册同名指标，否则会直接 panic。
	once sync.Once

	// HTTPRequestsTotal：累计请求数（Counter）。
	//
	// labels：
	// - method：HTTP 方法，例如 GET/POST
	// - route：路由模板（用 pattern，不要用带 id 的真实 path，否则会产生无限 label）
	// - status：HTTP 状态码字符串，例如 "200"/"401"/"500"
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "HTTP请求的总数",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds：请求耗时分布（Histogram），用于 P95/P99。
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPInflightRequests：当前正在处理中的请求数（Gauge）。
	HTTPInflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// TraceSpansTotal counts spans ended by the router instrumentation.
	//
	// labels：
	// - kind：root / middleware / handler
	// - status：ok / error
	TraceSpansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otelgee_spans_total",
			Help: "Spans ended by the router instrumentation.",
		},
		[]string{"kind", "status"},
	)

	// TraceSpansOpen：已创建但尚未结束的 span 数。长期不归零说明有 span 泄漏。
	TraceSpansOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otelgee_spans_open",
			Help: "Spans started by the router instrumentation and not yet ended.",
		},
		[]string{"kind"},
	)
)

// Init 注册指标：只允许注册一次（否则 panic: duplicate metrics collector registration）
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			HTTPInflightRequests,
			TraceSpansTotal,
			TraceSpansOpen,
		)
	})
}
