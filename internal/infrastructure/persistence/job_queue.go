package persistence

import (
	"context"
	"fmt"

	"github.com/erp/records/internal/domain/propagation"
	"gorm.io/gorm"
)

// GormJobQueue implements propagation.Queue by inserting job rows. Bound to
// a transaction, the enqueue commits or rolls back with the entity write
// that caused it.
type GormJobQueue struct {
	jobs        *GormJobRepository
	maxAttempts int
}

// NewGormJobQueue creates a queue. maxAttempts overrides the job default
// when positive.
func NewGormJobQueue(db *gorm.DB, maxAttempts int) *GormJobQueue {
	return &GormJobQueue{jobs: NewGormJobRepository(db), maxAttempts: maxAttempts}
}

// WithTx returns a queue bound to the given transaction
func (q *GormJobQueue) WithTx(tx *gorm.DB) *GormJobQueue {
	return &GormJobQueue{jobs: q.jobs.WithTx(tx), maxAttempts: q.maxAttempts}
}

// Enqueue persists a pending job
func (q *GormJobQueue) Enqueue(ctx context.Context, job *propagation.Job) (propagation.JobHandle, error) {
	if !job.SubjectKind.IsValid() {
		return propagation.JobHandle{}, fmt.Errorf("enqueue propagation job: invalid subject kind %q", job.SubjectKind)
	}
	if q.maxAttempts > 0 {
		job.MaxAttempts = q.maxAttempts
	}
	if err := q.jobs.Save(ctx, job); err != nil {
		return propagation.JobHandle{}, fmt.Errorf("enqueue propagation job: %w", err)
	}
	return propagation.JobHandle{ID: job.ID, TenantID: job.TenantID}, nil
}

// Ensure GormJobQueue implements propagation.Queue
var _ propagation.Queue = (*GormJobQueue)(nil)
