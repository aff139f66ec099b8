package middleware

import (
	"log/slog"
	"time"

	"geetrace.local/gee"
)

// AccessLog 在响应完成时输出一条访问日志。Defer 的请求由后台 goroutine 写响应，
// 所以不能在 Next 返回后直接读状态码。
func AccessLog() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		start := time.Now()
		ctx.Writer.OnFinish(func() {
			attrs := []any{
				"request_id", ctx.Req.Header.Get(RequestIDHeader),
				"method", ctx.Method,
				"path", ctx.Path,
				"route", ctx.RoutePattern,
				"status", ctx.Writer.Status(),
				"bytes", ctx.Writer.Size(),
				"latency_ms", time.Since(start).Milliseconds(),
			}
			if msg := ctx.GetString(gee.ErrorMessageKey); msg != "" {
				attrs = append(attrs, "error", msg)
			}
			slog.Info("access", attrs...)
		})
		ctx.Next()
	}
}
