package persistence

import (
	"context"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantRepository implements crm.TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, crm.ErrTenantNotFound, shared.ErrAlreadyExists)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a tenant
func (r *GormTenantRepository) Save(ctx context.Context, t *crm.Tenant) error {
	err := r.db.WithContext(ctx).Save(models.TenantModelFromDomain(t)).Error
	return translateError(err, crm.ErrTenantNotFound, shared.ErrAlreadyExists)
}

// Ensure GormTenantRepository implements crm.TenantRepository
var _ crm.TenantRepository = (*GormTenantRepository)(nil)
