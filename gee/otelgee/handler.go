package otelgee

import (
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"

	"geetrace.local/gee"
)

// WrapHandler returns the terminal handler fn instrumented with a
// "request handler - <path>" span.
//
// A handler that calls c.Defer keeps its span open until the Deferred
// settles. A panic is recorded and re-raised with the same value.
func (i *Instrumentation) WrapHandler(path string, fn gee.HandlerFunc) gee.HandlerFunc {
	spanName := "request handler - " + path
	return func(c *gee.Context) {
		if !i.Enabled() {
			fn(c)
			return
		}
		cr := i.ensureRootSpan(c)
		root := cr.rootSpan()

		apiName, correlationID := cr.identity()
		ids := []attribute.KeyValue{attrAPIName.String(apiName)}
		if correlationID != "" {
			ids = append(ids, attrCorrelationID.String(correlationID))
		}
		root.SetAttributes(ids...)

		attrs := append(httpAttributes(c), semconv.HTTPRoute(path))
		attrs = append(attrs, ids...)
		ctx, node := i.startSpan(parentContext(c, root), kindHandler, spanName, trace.WithAttributes(attrs...))
		restore := activate(c, ctx)
		before := c.Deferred()

		defer func() {
			restore()
			if r := recover(); r != nil {
				node.recordError(panicError(r), string(debug.Stack()))
				node.end()
				panic(r)
			}
			if d := c.Deferred(); d != nil && d != before {
				d.Finally(func(err error) {
					if err != nil {
						node.recordError(err, stackOf(err))
					}
					node.end()
				})
				return
			}
			node.end()
		}()
		fn(c)
	}
}
