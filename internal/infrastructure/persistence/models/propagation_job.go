package models

import (
	"time"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/google/uuid"
)

// PropagationJobModel is the durable queue row of a propagation job
type PropagationJobModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorID       *uuid.UUID `gorm:"type:uuid"`
	SubjectKind   string     `gorm:"type:varchar(20);not null"`
	SubjectID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ChangedFields string     `gorm:"type:varchar(200);not null"`
	Status        string     `gorm:"type:varchar(20);not null;index:idx_propagation_jobs_status_next,priority:1"`
	Attempts      int        `gorm:"not null;default:0"`
	MaxAttempts   int        `gorm:"not null;default:3"`
	LastError     string     `gorm:"type:text"`
	NextAttemptAt *time.Time `gorm:"index:idx_propagation_jobs_status_next,priority:2"`
	ClaimedAt     *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PropagationJobModel) TableName() string {
	return "propagation_jobs"
}

// ToDomain converts the persistence model to a domain Job
func (m *PropagationJobModel) ToDomain() *propagation.Job {
	return &propagation.Job{
		ID:            m.ID,
		TenantID:      m.TenantID,
		ActorID:       m.ActorID,
		SubjectKind:   propagation.SubjectKind(m.SubjectKind),
		SubjectID:     m.SubjectID,
		ChangedFields: crm.ParseFieldList(m.ChangedFields),
		Status:        propagation.JobStatus(m.Status),
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		LastError:     m.LastError,
		NextAttemptAt: m.NextAttemptAt,
		ClaimedAt:     m.ClaimedAt,
		ProcessedAt:   m.ProcessedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// PropagationJobModelFromDomain creates a persistence model from a domain Job
func PropagationJobModelFromDomain(j *propagation.Job) *PropagationJobModel {
	return &PropagationJobModel{
		ID:            j.ID,
		TenantID:      j.TenantID,
		ActorID:       j.ActorID,
		SubjectKind:   string(j.SubjectKind),
		SubjectID:     j.SubjectID,
		ChangedFields: j.ChangedFields.String(),
		Status:        string(j.Status),
		Attempts:      j.Attempts,
		MaxAttempts:   j.MaxAttempts,
		LastError:     j.LastError,
		NextAttemptAt: utcPtr(j.NextAttemptAt),
		ClaimedAt:     utcPtr(j.ClaimedAt),
		ProcessedAt:   utcPtr(j.ProcessedAt),
		CreatedAt:     j.CreatedAt.UTC(),
		UpdatedAt:     j.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// DeliveryColumns are the columns rewritten when a job changes delivery state
func (m *PropagationJobModel) DeliveryColumns() map[string]any {
	return map[string]any{
		"status":          m.Status,
		"attempts":        m.Attempts,
		"last_error":      m.LastError,
		"next_attempt_at": m.NextAttemptAt,
		"claimed_at":      m.ClaimedAt,
		"processed_at":    m.ProcessedAt,
		"updated_at":      m.UpdatedAt,
	}
}

// AllModels lists every model owned by this service, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&TenantModel{},
		&ClassificationGroupModel{},
		&AccountModel{},
		&ContactModel{},
		&PropagationJobModel{},
	}
}
