package propagation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobHandle identifies an enqueued job
type JobHandle struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

// Queue accepts propagation jobs for asynchronous delivery
type Queue interface {
	Enqueue(ctx context.Context, job *Job) (JobHandle, error)
}

// Delivery is one attempt at running a job. Attempt starts at 1.
type Delivery struct {
	Job         *Job
	Attempt     int
	MaxAttempts int
}

// IsLastAttempt reports whether a retryable failure will kill the job
func (d Delivery) IsLastAttempt() bool {
	return d.Attempt >= d.MaxAttempts
}

// Handler runs a delivered job
type Handler interface {
	Handle(ctx context.Context, delivery Delivery) Outcome
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, delivery Delivery) Outcome

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, delivery Delivery) Outcome {
	return f(ctx, delivery)
}

// JobFilter narrows dead-letter queries. A nil TenantID matches every tenant.
type JobFilter struct {
	TenantID *uuid.UUID
	Status   JobStatus
	Page     int
	PageSize int
}

// JobRepository defines persistence for propagation jobs
type JobRepository interface {
	// Save persists new jobs
	Save(ctx context.Context, jobs ...*Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	// ClaimDue atomically moves up to limit due jobs to processing and
	// returns them. Due jobs are pending jobs, failed jobs whose next attempt
	// time has passed, and processing jobs claimed before staleBefore.
	ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*Job, error)
	// Update writes the delivery state of a job
	Update(ctx context.Context, job *Job) error
	// Settle writes the state of a job claimed at attempt claimedAttempt.
	// It returns ErrStaleDelivery when the stored job is no longer that claim.
	Settle(ctx context.Context, job *Job, claimedAttempt int) error
	Find(ctx context.Context, filter JobFilter) ([]*Job, int64, error)
	CountByStatus(ctx context.Context, tenantID *uuid.UUID) (map[JobStatus]int64, error)
	// DeleteCompletedBefore removes completed jobs processed before t
	DeleteCompletedBefore(ctx context.Context, t time.Time) (int64, error)
}
