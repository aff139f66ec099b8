package otelgee

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"

	"geetrace.local/gee"
)

// ensureRootSpan creates the request's root span on first use and schedules
// its completion on the response finish event. Later calls return the same
// carrier without side effects.
func (i *Instrumentation) ensureRootSpan(c *gee.Context) *carrier {
	cr := carrierFrom(c)
	cr.mu.Lock()
	if cr.hasRootSpan {
		cr.mu.Unlock()
		return cr
	}
	cr.hasRootSpan = true
	cr.rawPath = c.Path

	opts := []trace.SpanStartOption{
		trace.WithNewRoot(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(i.rootAttributes(c)...),
	}
	// Keep a link to the upstream span (e.g. otelhttp) the new root replaces.
	if upstream := trace.SpanContextFromContext(c.Req.Context()); upstream.IsValid() {
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: upstream}))
	}
	_, cr.root = i.startSpan(c.Req.Context(), kindRoot, c.Method+" "+c.Path, opts...)
	cr.mu.Unlock()

	c.Writer.OnFinish(func() { i.finishRootSpan(c, cr) })
	return cr
}

func (i *Instrumentation) rootAttributes(c *gee.Context) []attribute.KeyValue {
	req := c.Req
	attrs := []attribute.KeyValue{
		semconv.ServiceName(i.serviceName),
		attrHTTPFlavor.String(fmt.Sprintf("%d.%d", req.ProtoMajor, req.ProtoMinor)),
		attrHTTPHost.String(req.Host),
		attrHTTPMethod.String(c.Method),
		attrHTTPURL.String(requestURL(c)),
		attrHTTPTarget.String(c.Path),
	}
	if v := req.Header.Get("Content-Length"); v != "" {
		attrs = append(attrs, attrHTTPContentLength.String(v))
	}
	if v := req.UserAgent(); v != "" {
		attrs = append(attrs, attrHTTPUserAgent.String(v))
	}
	return attrs
}

func (i *Instrumentation) finishRootSpan(c *gee.Context, cr *carrier) {
	cr.mu.Lock()
	root := cr.root
	cr.mu.Unlock()
	if root == nil {
		return
	}

	status := c.Writer.Status()
	message := c.GetString(gee.ErrorMessageKey)
	if message == "" {
		message = defaultErrorMessage
	}
	attrs := []attribute.KeyValue{
		semconv.HTTPResponseStatusCode(status),
		attrHTTPStatusText.String(c.Writer.StatusText()),
		attrErrorMessage.String(message),
	}
	if route := cr.route(c); route != "" {
		attrs = append(attrs, semconv.HTTPRoute(route))
	}
	root.span.SetAttributes(attrs...)

	if status >= 400 {
		root.span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d error occurred", status))
		root.span.AddEvent(errorEvent, trace.WithAttributes(attrs...))
		root.markFailed()
	}
	root.end()
}
