package propagation

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracerName is the instrumentation scope of propagation spans
const TracerName = "github.com/erp/records/propagation"

// JobHandler runs delivered propagation jobs through the sync engine on
// behalf of the job's tenant
type JobHandler struct {
	engine  *SyncEngine
	tenants crm.TenantRepository
	logger  *zap.Logger
	tracer  trace.Tracer
}

// JobHandlerOption configures a JobHandler
type JobHandlerOption func(*JobHandler)

// WithTracerProvider sets the provider used for job spans
func WithTracerProvider(tp trace.TracerProvider) JobHandlerOption {
	return func(h *JobHandler) {
		h.tracer = tp.Tracer(TracerName)
	}
}

// NewJobHandler creates a job handler
func NewJobHandler(engine *SyncEngine, tenants crm.TenantRepository, logger *zap.Logger, opts ...JobHandlerOption) *JobHandler {
	h := &JobHandler{
		engine:  engine,
		tenants: tenants,
		logger:  logger,
		tracer:  otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle restores the job's tenant, then propagates. A missing or
// non-operational tenant is fatal; a failed tenant lookup is retried.
func (h *JobHandler) Handle(ctx context.Context, d propagation.Delivery) propagation.Outcome {
	job := d.Job
	ctx, span := h.tracer.Start(ctx, "propagation.job",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("propagation.job_id", job.ID.String()),
			attribute.String("propagation.subject_kind", string(job.SubjectKind)),
			attribute.String("propagation.subject_id", job.SubjectID.String()),
			attribute.String("propagation.changed_fields", job.ChangedFields.String()),
			attribute.Int("propagation.attempt", d.Attempt),
		),
	)
	defer span.End()

	ctx, log := logger.WithJob(ctx, h.logger, job.ID, d.Attempt)
	if err := h.restoreTenant(ctx, job.TenantID); err != nil {
		log.Error("Cannot restore tenant for propagation job",
			zap.String("tenant_id", job.TenantID.String()),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "tenant restore failed")
		if errors.Is(err, shared.ErrTenantContext) {
			return propagation.FatalFailure(err)
		}
		return propagation.RetryableFailure(err)
	}
	span.SetAttributes(attribute.String("tenant.id", job.TenantID.String()))
	ctx, log = logger.WithTenantID(ctx, log, job.TenantID)
	ctx, log = logger.WithUserID(ctx, log, job.ActorID)

	result, err := h.engine.Propagate(ctx, InputFromJob(job))
	if err != nil {
		outcome := Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(outcome.Kind))
		fields := []zap.Field{
			zap.String("subject_kind", string(job.SubjectKind)),
			zap.String("subject_id", job.SubjectID.String()),
			zap.String("outcome", string(outcome.Kind)),
			zap.Error(err),
		}
		if outcome.Kind == propagation.OutcomeFatal {
			logger.L(ctx).Error("Propagation failed permanently", fields...)
		} else {
			logger.L(ctx).Warn("Propagation failed", fields...)
		}
		return outcome
	}

	span.SetAttributes(
		attribute.Int("propagation.operations", len(result.Operations)),
		attribute.Int("propagation.updated_fields", result.UpdatedFieldCount()),
	)
	if result.Skipped != "" {
		span.SetAttributes(attribute.String("propagation.skipped", string(result.Skipped)))
		logger.L(ctx).Debug("Propagation skipped", zap.String("reason", string(result.Skipped)))
	} else {
		logger.L(ctx).Info("Propagation applied",
			zap.Int("operations", len(result.Operations)),
			zap.Int("updated_fields", result.UpdatedFieldCount()),
		)
	}
	return propagation.Success(result)
}

func (h *JobHandler) restoreTenant(ctx context.Context, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return shared.WrapDomainError(shared.ErrTenantContext.Code, "job carries no tenant", nil)
	}
	tenant, err := h.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.WrapDomainError(shared.ErrTenantContext.Code, "tenant not found", err)
		}
		return fmt.Errorf("load tenant: %w", err)
	}
	if !tenant.IsOperational() {
		return shared.WrapDomainError(shared.ErrTenantContext.Code,
			fmt.Sprintf("tenant is %s", tenant.Status), nil)
	}
	return nil
}

// Ensure JobHandler implements propagation.Handler
var _ propagation.Handler = (*JobHandler)(nil)
