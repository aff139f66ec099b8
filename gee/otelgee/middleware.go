package otelgee

import (
	"runtime/debug"

	"go.opentelemetry.io/otel/trace"

	"geetrace.local/gee"
)

// WrapMiddleware returns fn instrumented with a "middleware - <name>" span.
//
// The span ends when fn continues the chain (Next or NextError), or when fn
// returns if it never does. An error passed to NextError is recorded on the
// span before the router's error handling sees it.
func (i *Instrumentation) WrapMiddleware(fn gee.HandlerFunc) gee.HandlerFunc {
	return i.wrapMiddleware(funcName(fn), fn)
}

func (i *Instrumentation) wrapMiddleware(name string, fn gee.HandlerFunc) gee.HandlerFunc {
	spanName := "middleware - " + name
	return func(c *gee.Context) {
		if !i.Enabled() {
			fn(c)
			return
		}
		cr := i.ensureRootSpan(c)
		ctx, node := i.startSpan(parentContext(c, cr.rootSpan()), kindMiddleware, spanName,
			trace.WithAttributes(httpAttributes(c)...))
		restore := activate(c, ctx)
		prevHook := c.HookNext(func(err error) {
			if err != nil {
				node.recordError(err, stackOf(err))
			}
			node.end()
		})

		defer func() {
			c.HookNext(prevHook)
			restore()
			if r := recover(); r != nil {
				node.recordError(panicError(r), string(debug.Stack()))
				node.end()
				panic(r)
			}
			node.end()
		}()
		fn(c)
	}
}
