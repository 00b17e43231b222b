package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceHTTPClient(t *testing.T) {
	tracer, err := NewTracer(context.Background(), TracingConfig{Enabled: false, ServiceName: "test-service"})
	require.NoError(t, err)

	client := TraceHTTPClient(nil, tracer)
	require.NotNil(t, client)
	assert.IsType(t, &tracingTransport{}, client.Transport)

	existing := &http.Client{}
	traced := TraceHTTPClient(existing, nil)
	assert.Same(t, existing, traced)
	assert.NotNil(t, traced.Transport)
}

func TestTracingTransport_RoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	client := TraceHTTPClient(&http.Client{}, nil)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestInjectTraceContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	InjectTraceContext(context.Background(), req)
}
