package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const defaultServiceName = "auto-deployer"

// TracingConfig configures the OTLP/HTTP span exporter.
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	// OTLPEndpoint is host:port of the collector, without scheme.
	OTLPEndpoint string
	// SampleRate applies to root spans only; children follow their parent.
	SampleRate float64
	Insecure   bool
}

// DefaultTracingConfig returns a disabled configuration pointing at a local collector.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:        false,
		ServiceName:    defaultServiceName,
		ServiceVersion: "dev",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4318",
		SampleRate:     1.0,
		Insecure:       true,
	}
}

// Tracer wraps an OpenTelemetry tracer and, when enabled, the provider that owns it.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// NewTracer builds a tracer. A disabled config yields a tracer backed by the
// global no-op provider, so callers never need to branch on Enabled.
func NewTracer(ctx context.Context, config TracingConfig) (*Tracer, error) {
	if config.ServiceName == "" {
		config.ServiceName = defaultServiceName
	}
	if !config.Enabled {
		return &Tracer{tracer: otel.Tracer(config.ServiceName), config: config}, nil
	}

	exporter, err := newExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	// resource.New avoids the schema URL conflict resource.Merge hits with the default resource
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(config.SampleRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(config.ServiceName),
		config:   config,
	}, nil
}

func newExporter(ctx context.Context, config TracingConfig) (*otlptrace.Exporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLPEndpoint)}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1.0:
		root = sdktrace.AlwaysSample()
	case rate <= 0.0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Shutdown flushes pending spans. It is a no-op for a disabled tracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

func (t *Tracer) SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddEvent records an event on the span carried by ctx.
func (t *Tracer) AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

func (t *Tracer) SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

func (t *Tracer) RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	trace.SpanFromContext(ctx).RecordError(err, opts...)
}

func (t *Tracer) IsEnabled() bool {
	return t.config.Enabled
}

// Span attribute keys shared by the poller, executor and API.
var (
	AttrJobID       = attribute.Key("job.id")
	AttrJobExitCode = attribute.Key("job.exit_code")

	AttrTargetID       = attribute.Key("target.id")
	AttrPackageID      = attribute.Key("package.id")
	AttrPackageVersion = attribute.Key("package.version")

	AttrCycleTargets   = attribute.Key("poll.targets")
	AttrCycleSubmitted = attribute.Key("poll.submitted")
)

// JobSpanAttributes returns the attributes every deployment job span carries.
func JobSpanAttributes(jobID, targetID, packageID, version string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrJobID.String(jobID),
		AttrTargetID.String(targetID),
		AttrPackageID.String(packageID),
		AttrPackageVersion.String(version),
	}
}

var (
	globalMu     sync.RWMutex
	globalTracer *Tracer
)

// InitGlobalTracer replaces the process-wide tracer returned by GetGlobalTracer.
func InitGlobalTracer(ctx context.Context, config TracingConfig) error {
	tracer, err := NewTracer(ctx, config)
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalTracer = tracer
	globalMu.Unlock()
	return nil
}

// GetGlobalTracer returns the process-wide tracer, or a no-op one before InitGlobalTracer.
func GetGlobalTracer() *Tracer {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{
			tracer: otel.Tracer(defaultServiceName),
			config: DefaultTracingConfig(),
		}
	}
	return globalTracer
}

func ShutdownGlobalTracer(ctx context.Context) error {
	globalMu.RLock()
	tracer := globalTracer
	globalMu.RUnlock()
	if tracer == nil {
		return nil
	}
	return tracer.Shutdown(ctx)
}
