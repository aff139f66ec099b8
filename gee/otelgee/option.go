package otelgee

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type config struct {
	provider    trace.TracerProvider
	serviceName string
	logger      *slog.Logger
	metrics     *spanMetrics
}

// Option configures an Instrumentation.
type Option func(*config)

// WithTracerProvider sets the provider spans are created from. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.provider = tp
		}
	}
}

// WithServiceName sets the service.name attribute of root spans. The default
// comes from ServiceNameFromEnv.
func WithServiceName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.serviceName = name
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSpanMetrics counts spans in the given collectors: open is labelled by
// kind (root, middleware, handler), total by kind and status (ok, error).
// Registering them is up to the caller. Either may be nil.
func WithSpanMetrics(open *prometheus.GaugeVec, total *prometheus.CounterVec) Option {
	return func(c *config) {
		if open == nil && total == nil {
			c.metrics = nil
			return
		}
		c.metrics = &spanMetrics{open: open, total: total}
	}
}

func newConfig(opts []Option) config {
	c := config{
		provider:    otel.GetTracerProvider(),
		serviceName: ServiceNameFromEnv(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
