package trace

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// InitTrace 初始化全局 TracerProvider：OTLP gRPC 导出 + 批量发送。
// 返回的 shutdown 会把缓冲中的 span 刷出去，进程退出前调用。
func InitTrace(endpoint string, serviceName string) (shutdown func(context.Context) error, err error) {
	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("otlptracegrpc: %w", err)
	}
	tp := NewProvider(serviceName, trace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

// NewProvider builds a TracerProvider tagged with the service name. Tests pass
// a span recorder as the processor.
func NewProvider(serviceName string, opts ...trace.TracerProviderOption) *trace.TracerProvider {
	opts = append([]trace.TracerProviderOption{
		trace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))),
	}, opts...)
	return trace.NewTracerProvider(opts...)
}
