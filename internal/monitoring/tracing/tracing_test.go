package tracing

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := StartSpan(context.Background(), "apiclient", "Client.Do")
	defer span.End()
	require.False(t, span.SpanContext().IsValid())
}

func TestInitExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := Init(context.Background(), Options{Exporter: exporter, SampleRatio: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx, span := StartSpan(context.Background(), "apiclient", "Client.Do",
		trace.WithAttributes(attribute.String("api.path", "/auth/me")))
	header := http.Header{}
	Inject(ctx, propagation.HeaderCarrier(header))
	span.End()

	require.NotEmpty(t, header.Get("traceparent"))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "Client.Do", spans[0].Name)
	require.Equal(t, "fuelcoach-go/apiclient", spans[0].InstrumentationLibrary.Name)
	require.Contains(t, spans[0].Attributes, attribute.String("api.path", "/auth/me"))
}

func TestInitZeroRatioDropsRootSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := Init(context.Background(), Options{Exporter: exporter, SampleRatio: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := StartSpan(context.Background(), "offline", "Queue.Flush")
	span.End()
	require.Empty(t, exporter.GetSpans())
}

func TestShutdownRestoresNoopProvider(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := Init(context.Background(), Options{Exporter: exporter, SampleRatio: 1})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := StartSpan(context.Background(), "apiclient", "Client.Do")
	span.End()
	require.False(t, span.SpanContext().IsValid())
	require.Empty(t, exporter.GetSpans())
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " collector:4317 ")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("OTEL_SERVICE_NAME", "fuelctl")

	opts := OptionsFromEnv()
	require.Equal(t, "collector:4317", opts.Endpoint)
	require.False(t, opts.Insecure)
	require.InDelta(t, 0.25, opts.SampleRatio, 1e-9)
	require.Equal(t, "fuelctl", opts.ServiceName)
}

func TestClamp(t *testing.T) {
	require.Equal(t, 0.0, clamp(-1))
	require.Equal(t, 1.0, clamp(3))
	require.Equal(t, 0.5, clamp(0.5))
}
