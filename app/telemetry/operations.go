package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OperationMetrics records the outcome and latency of engine operations.
type OperationMetrics struct {
	opCounter  metric.Int64Counter
	opDuration metric.Float64Histogram
	opHeight   metric.Int64Gauge
}

// NewOperationMetrics creates the operation instruments on meter.
func NewOperationMetrics(meter metric.Meter) (*OperationMetrics, error) {
	opCounter, err := meter.Int64Counter(
		"rush.engine.operations",
		metric.WithDescription("Total number of engine operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	opDuration, err := meter.Float64Histogram(
		"rush.engine.operation_time",
		metric.WithDescription("Engine operation processing time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	opHeight, err := meter.Int64Gauge(
		"rush.engine.height",
		metric.WithDescription("Sequence number of the last engine operation"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	return &OperationMetrics{
		opCounter:  opCounter,
		opDuration: opDuration,
		opHeight:   opHeight,
	}, nil
}

// RecordOperation records one finished operation. status is "success",
// "committed_error" or the error class of the failure.
func (m *OperationMetrics) RecordOperation(
	ctx context.Context,
	moduleName, operation, status string,
	height int64,
	duration time.Duration,
) {
	attrs := []attribute.KeyValue{
		attribute.String("module.name", moduleName),
		attribute.String("module.operation", operation),
		attribute.String("operation.status", status),
	}

	m.opCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.opDuration.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(attrs...))
	m.opHeight.Record(ctx, height)
}
