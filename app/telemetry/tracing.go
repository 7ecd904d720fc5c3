// Package telemetry provides OpenTelemetry tracing and metrics for the rush
// settlement engine. Every engine operation runs inside a span started by
// Provider.StartOperationSpan; spans are exported over OTLP/HTTP and
// operation instruments are read by the Prometheus exporter.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName    = "rush-engine"
	serviceVersion = "1.0.0"

	tracesPath = "/v1/traces"
)

// Config selects the exporters. Tracing is on when Enabled is set and
// OTLPEndpoint names a collector.
type Config struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRate   float64
	Environment  string
	EngineID     string

	// PrometheusEnabled attaches the OpenTelemetry meter to the default
	// Prometheus registry.
	PrometheusEnabled bool
}

// Provider owns the tracer and meter of one engine process. A nil or
// disabled Provider falls back to the global otel tracer and meter, which
// are no-ops unless something else installed them.
type Provider struct {
	config Config

	spans  *tracesdk.TracerProvider
	meters *metricsdk.MeterProvider
	tracer trace.Tracer
	meter  metric.Meter
}

// NewProvider builds the exporters named by cfg and installs them as the
// global otel providers.
func NewProvider(cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("environment", cfg.Environment),
			attribute.String("engine.id", cfg.EngineID),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if p.spans, err = newSpanProvider(cfg, res); err != nil {
		return nil, err
	}
	otel.SetTracerProvider(p.spans)
	p.tracer = p.spans.Tracer(serviceName)

	if cfg.PrometheusEnabled {
		reader, err := prometheus.New()
		if err != nil {
			_ = p.spans.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		p.meters = metricsdk.NewMeterProvider(metricsdk.WithResource(res), metricsdk.WithReader(reader))
		otel.SetMeterProvider(p.meters)
		p.meter = p.meters.Meter(serviceName)
	}
	return p, nil
}

func (c Config) validate() error {
	if c.OTLPEndpoint == "" {
		return errors.New("otlp endpoint is required")
	}
	if _, err := url.Parse(c.OTLPEndpoint); err != nil {
		return fmt.Errorf("invalid otlp endpoint: %w", err)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate %v outside [0, 1]", c.SampleRate)
	}
	return nil
}

// newSpanProvider exports batches to the collector at cfg.OTLPEndpoint. The
// exporter dials lazily, so an unreachable collector only drops spans.
func newSpanProvider(cfg Config, res *resource.Resource) (*tracesdk.TracerProvider, error) {
	host := strings.TrimPrefix(strings.TrimPrefix(cfg.OTLPEndpoint, "http://"), "https://")
	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithURLPath(tracesPath),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter,
			tracesdk.WithMaxExportBatchSize(512),
			tracesdk.WithMaxQueueSize(2048),
			tracesdk.WithBatchTimeout(5*time.Second),
		),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(cfg.SampleRate))),
	), nil
}

// Shutdown flushes pending spans and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.spans != nil {
		if err := p.spans.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.meters != nil {
		if err := p.meters.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Tracer returns the engine tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return otel.Tracer(serviceName)
	}
	return p.tracer
}

// Meter returns the engine meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil || p.meter == nil {
		return otel.Meter(serviceName)
	}
	return p.meter
}

// StartOperationSpan starts the span wrapping one engine operation.
func (p *Provider) StartOperationSpan(ctx context.Context, moduleName, operation, caller string) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, fmt.Sprintf("engine.%s.%s", moduleName, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("module.name", moduleName),
			attribute.String("module.operation", operation),
			attribute.String("engine.caller", caller),
		),
	)
}

// StartSweepSpan starts the span wrapping one keeper bot sweep.
func (p *Provider) StartSweepSpan(ctx context.Context, runID string, sweep uint64) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, "trigger.sweep",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("trigger.run_id", runID),
			attribute.Int64("trigger.sweep", int64(sweep)),
		),
	)
}

// HealthCheck reports an enabled exporter that failed to come up. Disabled
// telemetry is healthy.
func (p *Provider) HealthCheck() error {
	if p == nil || !p.config.Enabled {
		return nil
	}
	if p.spans == nil || p.tracer == nil {
		return errors.New("span exporter not initialized")
	}
	if p.config.PrometheusEnabled && (p.meters == nil || p.meter == nil) {
		return errors.New("prometheus enabled but meter not initialized")
	}
	return nil
}

// RecordError marks span failed with err.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanStatus sets the status of a span.
func SetSpanStatus(span trace.Span, success bool, message string) {
	if span == nil {
		return
	}
	code := codes.Error
	if success {
		code = codes.Ok
	}
	span.SetStatus(code, message)
}

// AddSpanAttributes adds attributes to a span.
func AddSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}
