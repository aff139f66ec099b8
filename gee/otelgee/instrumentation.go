// Package otelgee instruments a gee engine with OpenTelemetry spans.
//
// Every request gets a root span; every middleware and route handler
// registered after Patch gets a child span nested under the span that was
// active when it ran:
//
//	inst := otelgee.New(otelgee.WithServiceName("api"))
//	r := inst.Patch(gee.New())
//	r.Use(gee.Recovery())
//	r.GET("/items/:id", loadItem, showItem)
//
// Handlers find their span in c.Req.Context(). Work handed off with c.Defer
// should use Deferred.Context() so its spans stay under the handler span.
package otelgee

import (
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"geetrace.local/gee"
)

const (
	ScopeName = "geetrace.local/gee/otelgee"
	Version   = "0.0.1"
)

var _ gee.Interceptor = (*Instrumentation)(nil)

type Instrumentation struct {
	tracer      trace.Tracer
	serviceName string
	logger      *slog.Logger
	metrics     *spanMetrics
	disabled    atomic.Bool
}

func New(opts ...Option) *Instrumentation {
	cfg := newConfig(opts)
	return &Instrumentation{
		tracer:      cfg.provider.Tracer(ScopeName, trace.WithInstrumentationVersion(Version)),
		serviceName: cfg.serviceName,
		logger:      cfg.logger,
		metrics:     cfg.metrics,
	}
}

// Patch installs the instrumentation as e's registration interceptor and
// returns e. Only registrations made afterwards are instrumented.
func (i *Instrumentation) Patch(e *gee.Engine) *gee.Engine {
	if e == nil {
		return nil
	}
	if prev := e.Interceptor(); prev != nil && prev != gee.Interceptor(i) {
		i.logger.Warn("otelgee: replacing existing registration interceptor")
	}
	e.SetInterceptor(i)
	return e
}

// Unpatch removes the interceptor from e if Patch installed it. Handlers
// registered while patched stay wrapped; use Disable to silence them.
func (i *Instrumentation) Unpatch(e *gee.Engine) {
	if e == nil {
		return
	}
	if ic, ok := e.Interceptor().(*Instrumentation); ok && ic == i {
		e.SetInterceptor(nil)
	}
}

// Enable turns span creation back on after Disable.
func (i *Instrumentation) Enable() {
	i.disabled.Store(false)
}

// Disable makes every wrapped function call straight through.
func (i *Instrumentation) Disable() {
	i.disabled.Store(true)
}

func (i *Instrumentation) Enabled() bool {
	return !i.disabled.Load()
}
