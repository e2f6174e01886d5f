package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of propagation metrics
const MeterName = "github.com/erp/records/propagation"

// PropagationMetrics records queue and sync engine activity.
// A nil *PropagationMetrics records nothing.
type PropagationMetrics struct {
	enqueued  metric.Int64Counter
	processed metric.Int64Counter
	retried   metric.Int64Counter
	dead      metric.Int64Counter
	duration  metric.Float64Histogram
	syncOps   metric.Int64Counter
}

// NewPropagationMetrics creates the instruments on meter
func NewPropagationMetrics(meter metric.Meter) (*PropagationMetrics, error) {
	m := &PropagationMetrics{}
	var err error

	if m.enqueued, err = meter.Int64Counter("propagation_jobs_enqueued_total",
		metric.WithDescription("Propagation jobs enqueued by the change detector"),
		metric.WithUnit("{job}")); err != nil {
		return nil, fmt.Errorf("create enqueued counter: %w", err)
	}
	if m.processed, err = meter.Int64Counter("propagation_jobs_processed_total",
		metric.WithDescription("Job deliveries by outcome"),
		metric.WithUnit("{delivery}")); err != nil {
		return nil, fmt.Errorf("create processed counter: %w", err)
	}
	if m.retried, err = meter.Int64Counter("propagation_jobs_retried_total",
		metric.WithDescription("Jobs scheduled for another attempt"),
		metric.WithUnit("{job}")); err != nil {
		return nil, fmt.Errorf("create retried counter: %w", err)
	}
	if m.dead, err = meter.Int64Counter("propagation_jobs_dead_total",
		metric.WithDescription("Jobs moved to the dead-letter state"),
		metric.WithUnit("{job}")); err != nil {
		return nil, fmt.Errorf("create dead counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("propagation_job_duration_seconds",
		metric.WithDescription("Handler duration per delivery"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	if m.syncOps, err = meter.Int64Counter("propagation_sync_operations_total",
		metric.WithDescription("Sync operations that wrote at least one field"),
		metric.WithUnit("{operation}")); err != nil {
		return nil, fmt.Errorf("create sync operations counter: %w", err)
	}
	return m, nil
}

// RecordEnqueued counts a job enqueued for subject kind
func (m *PropagationMetrics) RecordEnqueued(ctx context.Context, subjectKind string) {
	if m == nil {
		return
	}
	m.enqueued.Add(ctx, 1, metric.WithAttributes(attribute.String("subject_kind", subjectKind)))
}

// RecordDelivery counts one handler run and its duration
func (m *PropagationMetrics) RecordDelivery(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.processed.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordRetry counts a job scheduled for another attempt
func (m *PropagationMetrics) RecordRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.retried.Add(ctx, 1)
}

// RecordDead counts a job moved to dead. reason is fatal or exhausted.
func (m *PropagationMetrics) RecordDead(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.dead.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordSyncOperation counts a sync operation that updated fields
func (m *PropagationMetrics) RecordSyncOperation(ctx context.Context, op string, fields int) {
	if m == nil {
		return
	}
	m.syncOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.Int("fields", fields),
	))
}
