package propagation

import (
	"context"
	"errors"
	"time"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const retryAllPageSize = 100

// OpsService exposes dead-letter operations on propagation jobs
type OpsService struct {
	jobs   propagation.JobRepository
	logger *zap.Logger
}

// NewOpsService creates a new ops service
func NewOpsService(jobs propagation.JobRepository, logger *zap.Logger) *OpsService {
	return &OpsService{jobs: jobs, logger: logger}
}

// JobDTO represents a propagation job data transfer object
type JobDTO struct {
	ID            uuid.UUID   `json:"id"`
	TenantID      uuid.UUID   `json:"tenant_id"`
	ActorID       *uuid.UUID  `json:"actor_id,omitempty"`
	SubjectKind   string      `json:"subject_kind"`
	SubjectID     uuid.UUID   `json:"subject_id"`
	ChangedFields []crm.Field `json:"changed_fields"`
	Status        string      `json:"status"`
	Attempts      int         `json:"attempts"`
	MaxAttempts   int         `json:"max_attempts"`
	LastError     string      `json:"last_error,omitempty"`
	NextAttemptAt *time.Time  `json:"next_attempt_at,omitempty"`
	ProcessedAt   *time.Time  `json:"processed_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// DeadJobFilter narrows ListDead. A nil TenantID lists every tenant.
type DeadJobFilter struct {
	TenantID *uuid.UUID `form:"-"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// StatsDTO counts jobs per status
type StatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDead returns dead jobs, most recently failed first
func (s *OpsService) ListDead(ctx context.Context, filter DeadJobFilter) (shared.Paginated[JobDTO], error) {
	page, pageSize := shared.NormalizePage(filter.Page, filter.PageSize, 100)

	jobs, total, err := s.jobs.Find(ctx, propagation.JobFilter{
		TenantID: filter.TenantID,
		Status:   propagation.JobStatusDead,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		s.logger.Error("Failed to list dead propagation jobs", zap.Error(err))
		return shared.Paginated[JobDTO]{}, shared.WrapDomainError("INTERNAL_ERROR", "Failed to retrieve dead jobs", err)
	}

	items := make([]JobDTO, len(jobs))
	for i, job := range jobs {
		items[i] = ToJobDTO(job)
	}
	return shared.NewPaginated(items, total, page, pageSize), nil
}

// Get returns a single job
func (s *OpsService) Get(ctx context.Context, id uuid.UUID) (*JobDTO, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToJobDTO(job)
	return &dto, nil
}

// Retry puts a dead job back in the queue with a fresh attempt budget
func (s *OpsService) Retry(ctx context.Context, id uuid.UUID) (*JobDTO, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.ResetForRetry(); err != nil {
		if errors.Is(err, propagation.ErrJobNotDead) {
			return nil, shared.WrapDomainError(shared.ErrInvalidState.Code, "Only dead jobs can be retried", err)
		}
		return nil, err
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		s.logger.Error("Failed to reset propagation job", zap.String("job_id", id.String()), zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to retry job", err)
	}

	s.logger.Info("Dead propagation job reset for retry",
		zap.String("job_id", id.String()),
		zap.String("tenant_id", job.TenantID.String()),
	)
	dto := ToJobDTO(job)
	return &dto, nil
}

// RetryAll resets every dead job of the tenant, or of all tenants when
// tenantID is nil. It returns the number of jobs reset.
func (s *OpsService) RetryAll(ctx context.Context, tenantID *uuid.UUID) (int64, error) {
	var count int64
	for {
		// reset jobs leave the dead set, so the first page is always the next batch
		jobs, _, err := s.jobs.Find(ctx, propagation.JobFilter{
			TenantID: tenantID,
			Status:   propagation.JobStatusDead,
			Page:     1,
			PageSize: retryAllPageSize,
		})
		if err != nil {
			s.logger.Error("Failed to list dead propagation jobs", zap.Error(err))
			return count, shared.WrapDomainError("INTERNAL_ERROR", "Failed to retrieve dead jobs", err)
		}
		if len(jobs) == 0 {
			break
		}

		for _, job := range jobs {
			if err := job.ResetForRetry(); err != nil {
				return count, err
			}
			if err := s.jobs.Update(ctx, job); err != nil {
				s.logger.Error("Failed to reset propagation job", zap.String("job_id", job.ID.String()), zap.Error(err))
				return count, shared.WrapDomainError("INTERNAL_ERROR", "Failed to retry jobs", err)
			}
			count++
		}

		if len(jobs) < retryAllPageSize {
			break
		}
	}

	s.logger.Info("Retried dead propagation jobs", zap.Int64("count", count))
	return count, nil
}

// Stats counts jobs by status, for one tenant or all when tenantID is nil
func (s *OpsService) Stats(ctx context.Context, tenantID *uuid.UUID) (*StatsDTO, error) {
	counts, err := s.jobs.CountByStatus(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to count propagation jobs", zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to get propagation stats", err)
	}

	stats := &StatsDTO{
		Pending:    counts[propagation.JobStatusPending],
		Processing: counts[propagation.JobStatusProcessing],
		Completed:  counts[propagation.JobStatusCompleted],
		Failed:     counts[propagation.JobStatusFailed],
		Dead:       counts[propagation.JobStatusDead],
	}
	stats.Total = stats.Pending + stats.Processing + stats.Completed + stats.Failed + stats.Dead
	return stats, nil
}

// ToJobDTO converts a job to its transfer object
func ToJobDTO(job *propagation.Job) JobDTO {
	return JobDTO{
		ID:            job.ID,
		TenantID:      job.TenantID,
		ActorID:       job.ActorID,
		SubjectKind:   string(job.SubjectKind),
		SubjectID:     job.SubjectID,
		ChangedFields: job.ChangedFields.Sorted(),
		Status:        string(job.Status),
		Attempts:      job.Attempts,
		MaxAttempts:   job.MaxAttempts,
		LastError:     job.LastError,
		NextAttemptAt: job.NextAttemptAt,
		ProcessedAt:   job.ProcessedAt,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
}
