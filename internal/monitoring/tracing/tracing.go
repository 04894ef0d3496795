package tracing

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"fuelcoach-go/internal/constants"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "fuelcoach-go"

// Options selects where spans go. A zero Options exports nothing.
type Options struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
	// SampleRatio is the fraction of root spans kept, clamped to [0, 1].
	SampleRatio float64
	// Exporter replaces the OTLP exporter; spans are exported synchronously.
	Exporter sdktrace.SpanExporter
}

// OptionsFromEnv reads the standard OTLP variables. The collector is assumed
// to be local, so transport security is off unless OTEL_EXPORTER_OTLP_INSECURE
// says otherwise.
func OptionsFromEnv() Options {
	opts := Options{
		ServiceName: defaultServiceName,
		Endpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Insecure:    true,
		SampleRatio: 1,
	}
	if raw := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			opts.Insecure = b
		}
	}
	if raw := strings.TrimSpace(os.Getenv("OTEL_TRACES_SAMPLER_ARG")); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			opts.SampleRatio = f
		}
	}
	if name := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); name != "" {
		opts.ServiceName = name
	}
	return opts
}

var (
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
)

func noopShutdown(context.Context) error { return nil }

// Init installs a tracer provider for opts, replacing any earlier one.
// With neither an endpoint nor an exporter, spans stay on the no-op provider.
// The returned function flushes pending spans and restores the no-op provider.
func Init(ctx context.Context, opts Options) (func(context.Context) error, error) {
	exporter := opts.Exporter
	syncExport := exporter != nil
	if exporter == nil {
		if opts.Endpoint == "" {
			return noopShutdown, nil
		}
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		var err error
		exporter, err = otlptracegrpc.New(ctx, grpcOpts...)
		if err != nil {
			return noopShutdown, err
		}
	}

	name := opts.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", name),
			attribute.String("service.version", constants.GetVersion()),
		),
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
	)
	if err != nil {
		return noopShutdown, err
	}

	spanOpt := sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second))
	if syncExport {
		spanOpt = sdktrace.WithSyncer(exporter)
	}
	tp := sdktrace.NewTracerProvider(
		spanOpt,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clamp(opts.SampleRatio)))),
	)

	mu.Lock()
	previous := provider
	provider = tp
	mu.Unlock()
	if previous != nil {
		_ = previous.Shutdown(ctx)
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		mu.Lock()
		current := provider == tp
		if current {
			provider = nil
		}
		mu.Unlock()
		if current {
			otel.SetTracerProvider(noop.NewTracerProvider())
		}
		return tp.Shutdown(ctx)
	}, nil
}

func clamp(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}

// Tracer returns the tracer for one component of the client.
func Tracer(component string) trace.Tracer {
	name := defaultServiceName
	if strings.TrimSpace(component) != "" {
		name = name + "/" + component
	}
	return otel.Tracer(name)
}

// StartSpan is Tracer(component).Start.
func StartSpan(ctx context.Context, component, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer(component).Start(ctx, spanName, opts...)
}

// Inject writes the active trace context into outgoing request headers.
func Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}
