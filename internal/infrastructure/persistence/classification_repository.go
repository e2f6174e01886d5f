package persistence

import (
	"context"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/persistence/models"
	"github.com/erp/records/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormClassificationRepository implements crm.ClassificationRepository using GORM
type GormClassificationRepository struct {
	db *gorm.DB
}

// NewGormClassificationRepository creates a new GormClassificationRepository
func NewGormClassificationRepository(db *gorm.DB) *GormClassificationRepository {
	return &GormClassificationRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormClassificationRepository) WithTx(tx *gorm.DB) *GormClassificationRepository {
	return &GormClassificationRepository{db: tx}
}

// FindByID finds a classification group within a tenant
func (r *GormClassificationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.ClassificationGroup, error) {
	q, err := tenant.Scoped(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	var model models.ClassificationGroupModel
	if err := q.Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err, crm.ErrClassificationNotFound, shared.ErrAlreadyExists)
	}
	return model.ToDomain(), nil
}

// Create inserts a new classification group
func (r *GormClassificationRepository) Create(ctx context.Context, group *crm.ClassificationGroup) error {
	if err := tenant.Guard(ctx, group.TenantID); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Create(models.ClassificationGroupModelFromDomain(group)).Error
	return translateError(err, crm.ErrClassificationNotFound, shared.ErrAlreadyExists)
}

// Ensure GormClassificationRepository implements crm.ClassificationRepository
var _ crm.ClassificationRepository = (*GormClassificationRepository)(nil)
