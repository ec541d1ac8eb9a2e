package telemetry

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// NewInstrumentedTransport wraps base (or the default transport) so every
// outbound request gets a client span.
func NewInstrumentedTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
	)
}
