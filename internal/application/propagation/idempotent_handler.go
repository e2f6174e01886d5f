package propagation

import (
	"context"
	"time"

	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotentHandler acknowledges redelivered jobs that already completed.
// The marker is written only after a successful run, so failed attempts
// stay retryable.
type IdempotentHandler struct {
	handler propagation.Handler
	store   shared.IdempotencyStore
	ttl     time.Duration
	logger  *zap.Logger
}

// NewIdempotentHandler wraps handler with completed-job markers kept in store
func NewIdempotentHandler(handler propagation.Handler, store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) *IdempotentHandler {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &IdempotentHandler{handler: handler, store: store, ttl: ttl, logger: logger}
}

// Handle runs the wrapped handler unless the job is already marked done
func (h *IdempotentHandler) Handle(ctx context.Context, d propagation.Delivery) propagation.Outcome {
	key := d.Job.ID.String()

	done, err := h.store.IsProcessed(ctx, key)
	if err != nil {
		h.logger.Warn("Idempotency check failed, processing anyway",
			zap.String("job_id", key),
			zap.Error(err),
		)
	} else if done {
		h.logger.Debug("Job already completed, acknowledging redelivery", zap.String("job_id", key))
		return propagation.Success(propagation.Skip(d.Job.SubjectKind, d.Job.SubjectID, propagation.SkipAlreadyCompleted))
	}

	outcome := h.handler.Handle(ctx, d)
	if !outcome.IsSuccess() {
		return outcome
	}
	if _, err := h.store.MarkProcessed(ctx, key, h.ttl); err != nil {
		h.logger.Warn("Failed to record completed job", zap.String("job_id", key), zap.Error(err))
	}
	return outcome
}

// Ensure IdempotentHandler implements propagation.Handler
var _ propagation.Handler = (*IdempotentHandler)(nil)
