package gee

import (
	"log/slog"
	"time"
)

// Logger logs every request once its response is complete.
func Logger() HandlerFunc {
	return func(ctx *Context) {
		t := time.Now()
		ctx.Writer.OnFinish(func() {
			slog.Info("request",
				"status", ctx.Writer.Status(),
				"uri", ctx.Req.RequestURI,
				"latency_us", time.Since(t).Microseconds(),
				"size", ctx.Writer.Size())
		})
		ctx.Next()
	}
}
