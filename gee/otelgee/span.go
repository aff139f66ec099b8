package otelgee

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"geetrace.local/gee"
)

// Span kinds used as metric labels.
const (
	kindRoot       = "root"
	kindMiddleware = "middleware"
	kindHandler    = "handler"
)

// spanMetrics are the optional collectors set by WithSpanMetrics. Either
// vector may be nil.
type spanMetrics struct {
	open  *prometheus.GaugeVec   // labels: kind
	total *prometheus.CounterVec // labels: kind, status
}

func (m *spanMetrics) started(kind string) {
	if m != nil && m.open != nil {
		m.open.WithLabelValues(kind).Inc()
	}
}

func (m *spanMetrics) ended(kind string, failed bool) {
	if m == nil {
		return
	}
	if m.open != nil {
		m.open.WithLabelValues(kind).Dec()
	}
	if m.total != nil {
		status := "ok"
		if failed {
			status = "error"
		}
		m.total.WithLabelValues(kind, status).Inc()
	}
}

// spanNode is a span that is ended exactly once. Errors recorded after the
// end are dropped.
type spanNode struct {
	span    trace.Span
	kind    string
	metrics *spanMetrics

	once   sync.Once
	mu     sync.Mutex
	ended  bool
	failed bool
}

func (i *Instrumentation) startSpan(ctx context.Context, kind, name string, opts ...trace.SpanStartOption) (context.Context, *spanNode) {
	ctx, span := i.tracer.Start(ctx, name, opts...)
	i.metrics.started(kind)
	return ctx, &spanNode{span: span, kind: kind, metrics: i.metrics}
}

func (n *spanNode) end() {
	n.once.Do(func() {
		n.mu.Lock()
		n.ended = true
		failed := n.failed
		n.mu.Unlock()

		n.span.End()
		n.metrics.ended(n.kind, failed)
	})
}

func (n *spanNode) isEnded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ended
}

func (n *spanNode) markFailed() {
	n.mu.Lock()
	n.failed = true
	n.mu.Unlock()
}

func (n *spanNode) hasFailed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failed
}

// recordError records err as an exception, sets the error status and adds an
// error event carrying the message and stack. It is a no-op once the span
// has ended.
func (n *spanNode) recordError(err error, stack string) {
	if n.isEnded() {
		return
	}
	n.span.RecordError(err)
	n.span.SetStatus(codes.Error, err.Error())
	n.span.AddEvent(errorEvent, trace.WithAttributes(
		attrErrorMessage.String(err.Error()),
		attrErrorStack.String(stack),
	))
	n.markFailed()
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackOf prefers the stack captured where err was created and falls back to
// the current goroutine's stack.
func stackOf(err error) string {
	var st stackTracer
	if stderrors.As(err, &st) {
		return strings.TrimPrefix(fmt.Sprintf("%+v", st.StackTrace()), "\n")
	}
	return string(debug.Stack())
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return stderrors.New(fmt.Sprint(v))
}

// activate makes span the active span of the request and returns a function
// restoring the span that was active before. Other context values added in
// between are kept.
func activate(c *gee.Context, ctx context.Context) (restore func()) {
	prev := trace.SpanFromContext(c.Req.Context())
	c.Req = c.Req.WithContext(ctx)
	return func() {
		c.Req = c.Req.WithContext(trace.ContextWithSpan(c.Req.Context(), prev))
	}
}

// parentContext returns the request context with the span new child spans
// should hang off: the active span when it belongs to this request's trace,
// the root span otherwise (e.g. an upstream server span).
func parentContext(c *gee.Context, root trace.Span) context.Context {
	ctx := c.Req.Context()
	active := trace.SpanContextFromContext(ctx)
	if active.IsValid() && active.TraceID() == root.SpanContext().TraceID() {
		return ctx
	}
	return trace.ContextWithSpan(ctx, root)
}

// funcName derives a readable name from a handler: the package-qualified
// function name, with closure suffixes dropped so factories such as
// gee.Recovery report their own name.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return anonymous
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return anonymous
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	for {
		i := strings.LastIndex(name, ".")
		if i < 0 || !isClosureSegment(name[i+1:]) {
			break
		}
		name = name[:i]
	}
	if name == "" {
		return anonymous
	}
	return name
}

func isClosureSegment(seg string) bool {
	seg = strings.TrimPrefix(seg, "func")
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
