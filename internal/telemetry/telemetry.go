// Package telemetry wraps each orchestrator phase in an OpenTelemetry span
// when tracing is enabled, adapted from the teacher's pkg/telemetry.Init/
// Config/resource pattern. Unlike the teacher, this tool has no collector
// endpoint to ship spans to by default (it is a one-shot CLI, not a long-
// running service), so only the SDK's in-process tracer provider is wired:
// a no-op tracer when disabled, and a provider reporting completed spans
// through the estimator's own logger when enabled. The OTLP gRPC/HTTP
// exporters the teacher uses are deliberately left unwired (see DESIGN.md).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/trifab/trifab/pkg/logging"
)

// Tracer is the span-starting surface the orchestrator depends on,
// satisfied by both a real OpenTelemetry tracer and the no-op default.
type Tracer interface {
	Start(ctx context.Context, spanName string) (context.Context, trace.Span)
}

// otelTracer adapts trace.Tracer to Tracer, dropping the opts variadic the
// orchestrator never needs.
type otelTracer struct {
	t trace.Tracer
}

func (o otelTracer) Start(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return o.t.Start(ctx, spanName)
}

// ShutdownFunc flushes and releases telemetry resources at process exit.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Disabled returns the no-op tracer used whenever --otel is absent: calling
// Start on it is cheap and every span is immediately a no-op recorder,
// exactly like the teacher's behavior when OTEL_ENABLED is unset.
func Disabled() Tracer {
	return otelTracer{t: otel.Tracer("trifab")}
}

// Init builds a real in-process TracerProvider reporting spans through
// logger, and installs it as the global provider so Disabled()'s
// otel.Tracer("trifab") calls (made before Init runs) pick it up too.
func Init(serviceVersion string, logger logging.Logger) (Tracer, ShutdownFunc, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", "trifab"),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return Disabled(), noopShutdown, err
	}

	exporter := &logExporter{logger: logger}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return otelTracer{t: tp.Tracer("trifab")}, tp.Shutdown, nil
}
