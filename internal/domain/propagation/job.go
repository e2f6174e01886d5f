package propagation

import (
	"errors"
	"time"

	"github.com/erp/records/internal/domain/crm"
	"github.com/google/uuid"
)

// SubjectKind is the entity kind whose mutation produced a job
type SubjectKind string

const (
	SubjectAccount SubjectKind = "account"
	SubjectContact SubjectKind = "contact"
)

// IsValid reports whether k is a known subject kind
func (k SubjectKind) IsValid() bool {
	return k == SubjectAccount || k == SubjectContact
}

// JobStatus represents the delivery state of a propagation job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusDead       JobStatus = "dead"
)

// Default retry configuration
const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 2 * time.Second
)

var (
	ErrJobNotClaimable = errors.New("can only claim pending or failed jobs")
	ErrJobNotDead      = errors.New("can only reset dead jobs")
	// ErrStaleDelivery means the job was reclaimed or changed after the
	// delivery being settled claimed it
	ErrStaleDelivery = errors.New("propagation job was reclaimed by another delivery")
)

// Job is a durable unit of propagation work. It carries its tenant and the
// acting user explicitly; workers never infer them from ambient state.
type Job struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	ActorID       *uuid.UUID
	SubjectKind   SubjectKind
	SubjectID     uuid.UUID
	ChangedFields crm.FieldSet
	Status        JobStatus
	Attempts      int
	MaxAttempts   int
	LastError     string
	NextAttemptAt *time.Time
	ClaimedAt     *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewJob creates a pending job
func NewJob(tenantID uuid.UUID, actorID *uuid.UUID, kind SubjectKind, subjectID uuid.UUID, changed crm.FieldSet) *Job {
	now := time.Now()
	return &Job{
		ID:            uuid.New(),
		TenantID:      tenantID,
		ActorID:       actorID,
		SubjectKind:   kind,
		SubjectID:     subjectID,
		ChangedFields: changed,
		Status:        JobStatusPending,
		MaxAttempts:   DefaultMaxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanRetry returns true if the job failed and has attempts left
func (j *Job) CanRetry() bool {
	return j.Status == JobStatusFailed && j.Attempts < j.MaxAttempts
}

// MarkProcessing claims the job for a delivery attempt and counts it
func (j *Job) MarkProcessing() error {
	if j.Status != JobStatusPending && j.Status != JobStatusFailed {
		return ErrJobNotClaimable
	}
	now := time.Now()
	j.Status = JobStatusProcessing
	j.Attempts++
	j.ClaimedAt = &now
	j.UpdatedAt = now
	return nil
}

// Reclaim recovers a job whose worker vanished mid-attempt. The lost
// attempt counts as a failure; returns false when the job is now dead.
func (j *Job) Reclaim() bool {
	if j.Status != JobStatusProcessing {
		return j.Status == JobStatusPending || j.Status == JobStatusFailed
	}
	if j.Attempts >= j.MaxAttempts {
		j.MarkDead("processing timed out on final attempt")
		return false
	}
	j.Status = JobStatusFailed
	j.LastError = "processing timed out"
	j.ClaimedAt = nil
	j.UpdatedAt = time.Now()
	return true
}

// Release hands back a claimed job that was never delivered. The claim
// does not count as an attempt and the job is due again immediately.
func (j *Job) Release() {
	if j.Status != JobStatusProcessing {
		return
	}
	now := time.Now()
	j.Attempts--
	j.ClaimedAt = nil
	j.UpdatedAt = now
	if j.Attempts <= 0 {
		j.Attempts = 0
		j.Status = JobStatusPending
		j.NextAttemptAt = nil
		return
	}
	j.Status = JobStatusFailed
	j.NextAttemptAt = &now
}

// MarkCompleted records a successful delivery
func (j *Job) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.LastError = ""
	j.NextAttemptAt = nil
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkFailed records a recoverable failure of the current attempt. The
// next attempt is delayed by base * 2^(attempts-1); once attempts reach
// MaxAttempts the job is dead.
func (j *Job) MarkFailed(errMsg string, base time.Duration) {
	now := time.Now()
	j.LastError = errMsg
	j.UpdatedAt = now
	j.ClaimedAt = nil

	if j.Attempts >= j.MaxAttempts {
		j.Status = JobStatusDead
		j.NextAttemptAt = nil
		return
	}

	j.Status = JobStatusFailed
	next := now.Add(Backoff(base, j.Attempts))
	j.NextAttemptAt = &next
}

// MarkDead records a failure that must not be retried
func (j *Job) MarkDead(errMsg string) {
	j.Status = JobStatusDead
	j.LastError = errMsg
	j.NextAttemptAt = nil
	j.ClaimedAt = nil
	j.UpdatedAt = time.Now()
}

// ResetForRetry puts a dead job back in the queue with a fresh attempt budget
func (j *Job) ResetForRetry() error {
	if j.Status != JobStatusDead {
		return ErrJobNotDead
	}
	j.Status = JobStatusPending
	j.Attempts = 0
	j.LastError = ""
	j.NextAttemptAt = nil
	j.ClaimedAt = nil
	j.UpdatedAt = time.Now()
	return nil
}

// IsDead returns true if the job was permanently abandoned
func (j *Job) IsDead() bool {
	return j.Status == JobStatusDead
}

// Backoff returns the delay after the given attempt: base, 2*base, 4*base, ...
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultBaseBackoff
	}
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<uint(attempt-1))
}
