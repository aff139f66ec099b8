package otelgee

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"geetrace.local/gee"
)

func newTestInstrumentation(t *testing.T, opts ...Option) (*Instrumentation, *tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	opts = append([]Option{WithTracerProvider(tp), WithServiceName("test-svc")}, opts...)
	return New(opts...), sr, tp
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func serveWithHeader(h http.Handler, method, target, key, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(key, value)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func spansByName(spans []sdktrace.ReadOnlySpan) map[string]sdktrace.ReadOnlySpan {
	m := make(map[string]sdktrace.ReadOnlySpan, len(spans))
	for _, s := range spans {
		m[s.Name()] = s
	}
	return m
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	return names
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func findEvent(s sdktrace.ReadOnlySpan, name string) (sdktrace.Event, bool) {
	for _, ev := range s.Events() {
		if ev.Name == name {
			return ev, true
		}
	}
	return sdktrace.Event{}, false
}

func mwAlpha(c *gee.Context) { c.Next() }
func mwBeta(c *gee.Context)  { c.Next() }
func mwGamma(c *gee.Context) { c.Next() }

func okHandler(c *gee.Context) { c.String(http.StatusOK, "ok") }

func denyAll(c *gee.Context) {
	c.NextError(gee.NewHTTPError(http.StatusForbidden, "denied"))
}

func shortCircuit(c *gee.Context) {
	c.String(http.StatusOK, "early")
	c.Abort()
}

func itemsContract(c *gee.Context) {
	SetAPIName(c, "items.get")
	c.Next()
}
