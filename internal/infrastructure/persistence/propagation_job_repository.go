package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errJobNotFound = shared.NewDomainError("NOT_FOUND", "Propagation job not found")

// GormJobRepository implements propagation.JobRepository using GORM
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new GormJobRepository
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormJobRepository) WithTx(tx *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: tx}
}

// Save persists new jobs
func (r *GormJobRepository) Save(ctx context.Context, jobs ...*propagation.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	rows := make([]*models.PropagationJobModel, len(jobs))
	for i, job := range jobs {
		rows[i] = models.PropagationJobModelFromDomain(job)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByID finds a job by its ID
func (r *GormJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*propagation.Job, error) {
	var model models.PropagationJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, errJobNotFound, shared.ErrAlreadyExists)
	}
	return model.ToDomain(), nil
}

// ClaimDue moves up to limit due jobs to processing, oldest first. Rows
// locked by another worker are skipped. Stale processing jobs are reclaimed
// first; a reclaim on the final attempt kills the job instead of returning it.
func (r *GormJobRepository) ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*propagation.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	now = now.UTC()
	staleBefore = staleBefore.UTC()

	var claimed []*propagation.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.PropagationJobModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", propagation.JobStatusPending).
			Or("status = ? AND next_attempt_at <= ?", propagation.JobStatusFailed, now).
			Or("status = ? AND claimed_at < ?", propagation.JobStatusProcessing, staleBefore).
			Order("created_at ASC, id ASC").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return err
		}

		for i := range rows {
			job := rows[i].ToDomain()
			if job.Status == propagation.JobStatusProcessing && !job.Reclaim() {
				if err := r.writeDelivery(tx, job); err != nil {
					return err
				}
				continue
			}
			if err := job.MarkProcessing(); err != nil {
				return err
			}
			if err := r.writeDelivery(tx, job); err != nil {
				return err
			}
			claimed = append(claimed, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Update writes the delivery state of a job
func (r *GormJobRepository) Update(ctx context.Context, job *propagation.Job) error {
	return r.writeDelivery(r.db.WithContext(ctx), job)
}

// Settle writes the delivery state only while the stored row still holds
// the claim made at claimedAttempt
func (r *GormJobRepository) Settle(ctx context.Context, job *propagation.Job, claimedAttempt int) error {
	model := models.PropagationJobModelFromDomain(job)
	result := r.db.WithContext(ctx).Model(&models.PropagationJobModel{}).
		Where("id = ? AND status = ? AND attempts = ?", job.ID, propagation.JobStatusProcessing, claimedAttempt).
		Updates(model.DeliveryColumns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return propagation.ErrStaleDelivery
	}
	return nil
}

func (r *GormJobRepository) writeDelivery(db *gorm.DB, job *propagation.Job) error {
	model := models.PropagationJobModelFromDomain(job)
	result := db.Model(&models.PropagationJobModel{}).
		Where("id = ?", job.ID).
		Updates(model.DeliveryColumns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errJobNotFound
	}
	return nil
}

// Find lists jobs matching the filter, newest first
func (r *GormJobRepository) Find(ctx context.Context, filter propagation.JobFilter) ([]*propagation.Job, int64, error) {
	page, size := shared.NormalizePage(filter.Page, filter.PageSize, 200)

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.PropagationJobModel{})
		if filter.TenantID != nil {
			q = q.Where("tenant_id = ?", *filter.TenantID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PropagationJobModel
	err := base().Order("updated_at DESC, id ASC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	jobs := make([]*propagation.Job, len(rows))
	for i := range rows {
		jobs[i] = rows[i].ToDomain()
	}
	return jobs, total, nil
}

// CountByStatus returns the number of jobs per status
func (r *GormJobRepository) CountByStatus(ctx context.Context, tenantID *uuid.UUID) (map[propagation.JobStatus]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	q := r.db.WithContext(ctx).Model(&models.PropagationJobModel{})
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}

	var rows []statusCount
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[propagation.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[propagation.JobStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// DeleteCompletedBefore removes completed jobs processed before t
func (r *GormJobRepository) DeleteCompletedBefore(ctx context.Context, t time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", propagation.JobStatusCompleted, t.UTC()).
		Delete(&models.PropagationJobModel{})
	return result.RowsAffected, result.Error
}

// IsJobNotFound reports whether err means the job does not exist
func IsJobNotFound(err error) bool {
	return errors.Is(err, errJobNotFound)
}

// Ensure GormJobRepository implements propagation.JobRepository
var _ propagation.JobRepository = (*GormJobRepository)(nil)
