package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceMiddlewareContinuesIncomingTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	InstallPropagator()
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	var seen string
	handler := TraceMiddleware(tp)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/space/bitcoin", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	req.Header.Set("HX-Request", "true")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", seen)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "GET /space/bitcoin", spans[0].Name())
	require.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	require.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}

func TestTraceIDWithoutSpan(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, TraceID(req.Context()))
}

func TestInstallPropagatorUsesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	InstallPropagator()
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
	require.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
	require.Contains(t, otel.GetTextMapPropagator().Fields(), "baggage")
}
