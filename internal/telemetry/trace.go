package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zulandar/nudgeyard/internal/logger"
)

const tracerName = "github.com/zulandar/nudgeyard"

// TraceSink records each event as a short span.
type TraceSink struct {
	tracer trace.Tracer
}

// NewTraceSink uses tp, or the global provider when tp is nil.
func NewTraceSink(tp trace.TracerProvider) *TraceSink {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TraceSink{tracer: tp.Tracer(tracerName)}
}

func (s *TraceSink) Emit(ctx context.Context, ev Event) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, span := s.tracer.Start(ctx, "nudge."+string(ev.Kind),
		trace.WithTimestamp(at),
		trace.WithAttributes(
			attribute.String("nudge.intervention_id", ev.InterventionID),
			attribute.String("nudge.category", string(ev.Category)),
			attribute.String("nudge.urgency", string(ev.Urgency)),
			attribute.String("nudge.channel", string(ev.Channel)),
		),
	)
	if ev.Response != "" {
		span.SetAttributes(attribute.String("nudge.response", string(ev.Response)))
	}
	if ev.Reason != "" {
		span.SetAttributes(attribute.String("nudge.reason", ev.Reason))
	}
	if ev.Latency > 0 {
		span.SetAttributes(attribute.Int64("nudge.latency_ms", ev.Latency.Milliseconds()))
	}
	span.End(trace.WithTimestamp(at))
}

// OTelConfig selects the trace exporter.
type OTelConfig struct {
	Enabled     bool
	Exporter    string // "stdout" or "otlp"
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
	otelErr      error
)

// InitOTel installs a global tracer provider. It runs once per process and
// returns a shutdown func, which is a no-op when tracing is disabled.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OTelConfig) (func(context.Context) error, error) {
	otelOnce.Do(func() {
		otelShutdown = func(context.Context) error { return nil }
		if !cfg.Enabled {
			return
		}
		name := strings.TrimSpace(cfg.ServiceName)
		if name == "" {
			name = "nudgeyard"
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(cfg.Version),
		))
		if err != nil {
			log.Warn("otel resource init failed (continuing)", "error", err)
		}
		exp, err := buildExporter(ctx, cfg)
		if err != nil {
			otelErr = fmt.Errorf("telemetry: exporter: %w", err)
			return
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otelShutdown = tp.Shutdown
		log.Info("otel tracing initialized", "service", name, "exporter", cfg.Exporter)
	})
	return otelShutdown, otelErr
}

func buildExporter(ctx context.Context, cfg OTelConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		var opts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown exporter %q", cfg.Exporter)
	}
}
