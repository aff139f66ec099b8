package httpmiddleware

import (
	"strconv"
	"time"

	"geetrace.local/gee"
	"geetrace.local/internal/platform/metrics"
)

const unmatchedRoute = "UNMATCHED"

// Metrics 在响应完成时记录指标，异步（Defer）完成的请求也按最终状态码统计。
func Metrics() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		start := time.Now()
		metrics.HTTPInflightRequests.Inc()
		ctx.Writer.OnFinish(func() {
			metrics.HTTPInflightRequests.Dec()
			route := ctx.RoutePattern
			if route == "" {
				route = unmatchedRoute
			}
			status := strconv.Itoa(ctx.Writer.Status())
			metrics.HTTPRequestsTotal.WithLabelValues(ctx.Method, route, status).Inc()
			metrics.HTTPRequestDurationSeconds.WithLabelValues(ctx.Method, route).Observe(time.Since(start).Seconds())
		})
		ctx.Next()
	}
}
