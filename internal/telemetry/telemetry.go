package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/guillermoBallester/sqlgym"

// Provider owns the SDK providers of one process so they can be handed to
// the service and flushed on exit.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Init builds a Provider that exports over OTLP gRPC and registers it
// globally. The endpoint comes from OTEL_EXPORTER_OTLP_ENDPOINT.
func Init(ctx context.Context, serviceName, version string) (*Provider, error) {
	res, err := newResource(ctx, serviceName, version)
	if err != nil {
		return nil, err
	}

	spans, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	metrics, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		_ = spans.Shutdown(ctx)
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	p := newProvider(res, sdktrace.WithBatcher(spans), sdkmetric.NewPeriodicReader(metrics))

	otel.SetTracerProvider(p.tp)
	otel.SetMeterProvider(p.mp)
	// W3C trace context only travels over the HTTP transport.
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return p, nil
}

// newResource describes this process. Each process gets its own instance id
// so several servers behind one collector stay apart.
func newResource(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
			semconv.ServiceInstanceID(uuid.NewString()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}
	return res, nil
}

func newProvider(res *resource.Resource, spans sdktrace.TracerProviderOption, reader sdkmetric.Reader) *Provider {
	return &Provider{
		tp: sdktrace.NewTracerProvider(spans, sdktrace.WithResource(res)),
		mp: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res)),
	}
}

// Tracer returns the tracer used by the service and the MCP hooks.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return NoopTracer()
	}
	return p.tp.Tracer(tracerName)
}

// Instruments returns metric instruments bound to this provider.
func (p *Provider) Instruments() *Instruments {
	if p == nil {
		return NoopInstruments()
	}
	return newInstrumentsFromMeter(p.mp.Meter(meterName))
}

// Shutdown flushes pending spans and metrics. Both providers are shut down
// even when the first one fails.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if err := p.tp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down tracer: %w", err))
	}
	if err := p.mp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down meter: %w", err))
	}
	return errors.Join(errs...)
}

// NoopTracer is used when OTEL_ENABLED is false.
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("noop")
}
