// Package otel owns OpenTelemetry tracing setup and the span helpers the
// HTTP handlers use.
package otel

import (
	"context"
	"fmt"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"cartflow/pkg/logger"
)

type ctxKey int

const tracerKey ctxKey = 1

// Config holds tracing settings.
type Config struct {
	ServiceName string
	// Host is the OTLP gRPC collector endpoint. Empty disables export.
	Host        string
	Probability float64
}

// InitTracing configures the global tracer provider. The returned shutdown
// function flushes pending spans.
func InitTracing(log *logger.Logger, cfg Config) (trace.TracerProvider, func(ctx context.Context) error, error) {
	if cfg.Host == "" {
		log.Info(context.Background(), "tracing disabled, no collector host")
		tp := noop.NewTracerProvider()
		return tp, func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(cfg.Host),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("creating otlp exporter: %w", err)
	}

	res, err := sdkresource.Merge(sdkresource.Default(),
		sdkresource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		))
	if err != nil {
		return nil, nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.Probability)),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
		sdktrace.WithResource(res),
	)
	otelapi.SetTracerProvider(tp)
	otelapi.SetTextMapPropagator(propagation.TraceContext{})

	return tp, tp.Shutdown, nil
}

// InjectTracing stores the tracer in the context so handlers can start
// spans without a package-level dependency.
func InjectTracing(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerKey, tracer)
}

// AddSpan starts a child span named name. If no tracer was injected, the
// original context and a no-op span are returned.
func AddSpan(ctx context.Context, name string, attrs ...trace.SpanStartOption) (context.Context, trace.Span) {
	tracer, ok := ctx.Value(tracerKey).(trace.Tracer)
	if !ok || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, attrs...)
}

// GetTraceID returns the trace id of the span in ctx, or "" when there is
// no recorded span.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
