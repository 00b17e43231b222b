package observability

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// InjectTraceContext injects trace context into outgoing HTTP request headers
func InjectTraceContext(ctx context.Context, req *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// TraceHTTPClient wraps an HTTP client transport with tracing. A nil tracer
// falls back to the global tracer at request time.
func TraceHTTPClient(client *http.Client, tracer *Tracer) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	client.Transport = &tracingTransport{
		base:   transport,
		tracer: tracer,
	}
	return client
}

// tracingTransport wraps an http.RoundTripper with tracing
type tracingTransport struct {
	base   http.RoundTripper
	tracer *Tracer
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tracer := t.tracer
	if tracer == nil {
		tracer = GetGlobalTracer()
	}

	spanName := fmt.Sprintf("HTTP %s %s", req.Method, req.URL.Host)
	ctx, span := tracer.StartSpan(req.Context(), spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPMethod(req.Method),
			semconv.HTTPScheme(req.URL.Scheme),
			semconv.HTTPURL(req.URL.Redacted()),
			semconv.NetPeerName(req.URL.Host),
		),
	)
	defer span.End()

	// RoundTrippers must not modify the caller's request
	req = req.Clone(ctx)
	InjectTraceContext(ctx, req)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
		return nil, err
	}

	span.SetAttributes(semconv.HTTPStatusCode(resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetAttributes(attribute.Bool("error", true))
	}

	return resp, nil
}
