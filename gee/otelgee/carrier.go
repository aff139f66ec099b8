package otelgee

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"geetrace.local/gee"
)

const carrierKey = "otelgee.carrier"

// carrier is the per-request tracing state kept in the gee.Context key bag.
type carrier struct {
	mu            sync.Mutex
	hasRootSpan   bool
	root          *spanNode
	rawPath       string
	originalPath  string
	apiName       string
	correlationID string
}

func carrierFrom(c *gee.Context) *carrier {
	if v, ok := c.Get(carrierKey); ok {
		if cr, ok := v.(*carrier); ok {
			return cr
		}
	}
	cr := &carrier{}
	c.Set(carrierKey, cr)
	return cr
}

func (cr *carrier) rootSpan() trace.Span {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if cr.root == nil {
		return trace.SpanFromContext(context.Background())
	}
	return cr.root.span
}

func (cr *carrier) identity() (apiName, correlationID string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	apiName = cr.apiName
	if apiName == "" {
		apiName = undefinedAPIName
	}
	return apiName, cr.correlationID
}

func (cr *carrier) route(c *gee.Context) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if cr.originalPath != "" {
		return cr.originalPath
	}
	return c.RoutePattern
}

// SetCorrelationID records the id attached to the request's handler spans.
func SetCorrelationID(c *gee.Context, id string) {
	cr := carrierFrom(c)
	cr.mu.Lock()
	cr.correlationID = id
	cr.mu.Unlock()
}

// SetAPIName records the contract name of the endpoint serving the request.
func SetAPIName(c *gee.Context, name string) {
	cr := carrierFrom(c)
	cr.mu.Lock()
	cr.apiName = name
	cr.mu.Unlock()
}

// SetOriginalPath overrides the route reported on the root span. Without it the
// router's matched pattern is used.
func SetOriginalPath(c *gee.Context, path string) {
	cr := carrierFrom(c)
	cr.mu.Lock()
	cr.originalPath = path
	cr.mu.Unlock()
}

// RootSpan returns the request's root span, or a no-op span if none was
// created yet.
func RootSpan(c *gee.Context) trace.Span {
	return carrierFrom(c).rootSpan()
}

// Correlate copies the value of header into the request's correlation id.
func Correlate(header string) gee.HandlerFunc {
	return func(c *gee.Context) {
		if v := c.Req.Header.Get(header); v != "" {
			SetCorrelationID(c, v)
		}
		c.Next()
	}
}
