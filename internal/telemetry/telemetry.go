// Package telemetry traces command invocations with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	serviceName = "workspace-fs"
	tracerName  = "github.com/cchalm/workspace-fs/internal/telemetry"
)

// TelemetryConfig holds the configuration for telemetry
type TelemetryConfig struct {
	Enabled        bool
	OTLPEndpoint   string
	ServiceVersion string
}

// Provider hands out spans for command invocations
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewProvider creates a provider exporting over OTLP/HTTP, or a no-op provider if telemetry is disabled
func NewProvider(ctx context.Context, config TelemetryConfig) (*Provider, error) {
	if !config.Enabled {
		return NewProviderFromTracerProvider(noop.NewTracerProvider()), nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(config.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(config.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return &Provider{
		tracer:   tp.Tracer(tracerName),
		shutdown: tp.Shutdown,
	}, nil
}

// NewProviderFromTracerProvider wraps an existing tracer provider. Shutdown of the wrapped provider stays with the
// caller
func NewProviderFromTracerProvider(tp trace.TracerProvider) *Provider {
	return &Provider{
		tracer:   tp.Tracer(tracerName),
		shutdown: func(context.Context) error { return nil },
	}
}

// Shutdown flushes and stops the exporter, if any
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

// Invocation is an in-flight traced command
type Invocation struct {
	ID   string
	span trace.Span
}

// StartInvocation starts a span for one command invocation and assigns it a fresh ID
func (p *Provider) StartInvocation(ctx context.Context, command string) (context.Context, *Invocation) {
	id := NewInvocationID()
	ctx, span := p.tracer.Start(ctx, command,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("command", command),
			attribute.String("invocation.id", id),
		),
	)
	return ctx, &Invocation{ID: id, span: span}
}

// End finishes the span. errKind is empty on success
func (inv *Invocation) End(errKind string, err error) {
	inv.span.SetAttributes(attribute.Bool("error", err != nil))
	if err != nil {
		inv.span.SetAttributes(attribute.String("error.kind", errKind))
		inv.span.RecordError(err)
		inv.span.SetStatus(codes.Error, errKind)
	}
	inv.span.End()
}

// NewInvocationID generates a new invocation UUID
func NewInvocationID() string {
	return uuid.New().String()
}
