package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	transportGrpc = "grpc"
	transportHttp = "http"

	// a command lives for seconds, exports are flushed often and on shutdown
	exportInterval = time.Second * 2
	exportTimeout  = time.Second * 3
)

// transport is the protocol the signal is exported over, grpc wins when
// both endpoints are set.
func (c OtlpConnConfig) transport() string {
	if c.GrpcEndpoint != "" {
		return transportGrpc
	}
	return transportHttp
}

func (c OtlpConnConfig) endpoint() string {
	if c.transport() == transportGrpc {
		return c.GrpcEndpoint
	}
	return c.HttpEndpoint
}

func logExporter(signal string, conn OtlpConnConfig) {
	slog.Debug(
		"otlp exporter initialized",
		"signal", signal,
		"transport", conn.transport(),
		"endpoint", conn.endpoint(),
		"headers", len(conn.Headers) > 0,
	)
}

// newResource describes this process, OTEL_RESOURCE_ATTRIBUTES can add to it.
func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
}

func newSpanExporter(ctx context.Context, conn OtlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	logExporter("traces", conn)
	if conn.transport() == transportGrpc {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlptracegrpc.WithHeaders(conn.Headers),
			otlptracegrpc.WithTimeout(exportTimeout),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(conn.HttpEndpoint),
		otlptracehttp.WithHeaders(conn.Headers),
		otlptracehttp.WithTimeout(exportTimeout),
	)
}

func newMetricExporter(ctx context.Context, conn OtlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	logExporter("metrics", conn)
	if conn.transport() == transportGrpc {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(conn.Headers),
			otlpmetricgrpc.WithTimeout(exportTimeout),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(conn.HttpEndpoint),
		otlpmetrichttp.WithHeaders(conn.Headers),
		otlpmetrichttp.WithTimeout(exportTimeout),
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, conn OtlpConnConfig) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, conn)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter, trace.WithBatchTimeout(exportInterval)),
		trace.WithResource(r),
	), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, conn OtlpConnConfig) (*metric.MeterProvider, error) {
	exporter, err := newMetricExporter(ctx, conn)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(exportInterval))),
		metric.WithResource(r),
	), nil
}
