package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultTracingConfig(t *testing.T) {
	config := DefaultTracingConfig()

	assert.False(t, config.Enabled)
	assert.Equal(t, "auto-deployer", config.ServiceName)
	assert.Equal(t, "localhost:4318", config.OTLPEndpoint)
	assert.Equal(t, 1.0, config.SampleRate)
}

func TestNewTracer_Disabled(t *testing.T) {
	tracer, err := NewTracer(context.Background(), TracingConfig{ServiceName: "test-service"})
	require.NoError(t, err)
	assert.False(t, tracer.IsEnabled())

	// Spans are no-ops but still usable
	ctx, span := tracer.StartSpan(context.Background(), "execute-job")
	tracer.AddEvent(ctx, "manifest-written", attribute.String("path", "/tmp/x.manifest"))
	tracer.SetAttributes(ctx, JobSpanAttributes("job-1", "site-a", "App", "1.2.0")...)
	tracer.RecordError(ctx, assert.AnError)
	assert.NotNil(t, tracer.SpanFromContext(ctx))
	span.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_EnabledWithUnreachableCollector(t *testing.T) {
	// Export errors happen asynchronously, creation succeeds
	tracer, err := NewTracer(context.Background(), TracingConfig{
		Enabled:      true,
		ServiceName:  "test-service",
		Environment:  "test",
		OTLPEndpoint: "invalid-endpoint:9999",
		SampleRate:   0.5,
		Insecure:     true,
	})
	require.NoError(t, err)
	assert.True(t, tracer.IsEnabled())
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestJobSpanAttributes(t *testing.T) {
	attrs := JobSpanAttributes("job-789", "site-a", "App", "2.0.0")

	require.Len(t, attrs, 4)
	assert.Equal(t, "job.id", string(attrs[0].Key))
	assert.Equal(t, "job-789", attrs[0].Value.AsString())
	assert.Equal(t, "target.id", string(attrs[1].Key))
	assert.Equal(t, "package.id", string(attrs[2].Key))
	assert.Equal(t, "package.version", string(attrs[3].Key))
	assert.Equal(t, "2.0.0", attrs[3].Value.AsString())
}

func TestGetGlobalTracer_Uninitialized(t *testing.T) {
	tracer := GetGlobalTracer()
	require.NotNil(t, tracer)
	assert.False(t, tracer.IsEnabled())
}

func TestNewTracer_DefaultsServiceName(t *testing.T) {
	tracer, err := NewTracer(context.Background(), TracingConfig{})
	require.NoError(t, err)
	assert.Equal(t, "auto-deployer", tracer.config.ServiceName)
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(1.0).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, newSampler(0.25).Description(), "ParentBased")
}
