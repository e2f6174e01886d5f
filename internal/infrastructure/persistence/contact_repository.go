package persistence

import (
	"context"
	"time"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/persistence/models"
	"github.com/erp/records/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormContactRepository implements crm.ContactRepository using GORM
type GormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a new GormContactRepository
func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormContactRepository) WithTx(tx *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: tx}
}

// FindByID finds a contact within a tenant
func (r *GormContactRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.Contact, error) {
	q, err := tenant.Scoped(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	var model models.ContactModel
	if err := q.Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err, crm.ErrContactNotFound, crm.ErrEmailTaken)
	}
	return model.ToDomain(), nil
}

// FindCounterpart returns the earliest created contact of an account
func (r *GormContactRepository) FindCounterpart(ctx context.Context, tenantID, accountID uuid.UUID) (*crm.Contact, error) {
	q, err := tenant.Scoped(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	var model models.ContactModel
	err = q.Where("account_id = ?", accountID).
		Order("created_at ASC, id ASC").
		Take(&model).Error
	if err != nil {
		return nil, translateError(err, crm.ErrContactNotFound, crm.ErrEmailTaken)
	}
	return model.ToDomain(), nil
}

// FindByAccount returns every contact of an account, oldest first
func (r *GormContactRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]*crm.Contact, error) {
	q, err := tenant.Scoped(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	var rows []models.ContactModel
	if err := q.Where("account_id = ?", accountID).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	contacts := make([]*crm.Contact, len(rows))
	for i := range rows {
		contacts[i] = rows[i].ToDomain()
	}
	return contacts, nil
}

// ExistsByEmail reports whether another contact of the tenant uses email
func (r *GormContactRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string, excludeID *uuid.UUID) (bool, error) {
	q, err := tenant.Scoped(ctx, r.db, tenantID)
	if err != nil {
		return false, err
	}
	q = q.Model(&models.ContactModel{}).Where("email = ?", email)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new contact
func (r *GormContactRepository) Create(ctx context.Context, contact *crm.Contact) error {
	if err := tenant.Guard(ctx, contact.TenantID); err != nil {
		return err
	}
	model := models.ContactModelFromDomain(contact)
	err := r.db.WithContext(ctx).Create(model).Error
	return translateError(err, crm.ErrContactNotFound, crm.ErrEmailTaken)
}

// UpdateFields writes only the patched columns under optimistic locking
func (r *GormContactRepository) UpdateFields(ctx context.Context, contact *crm.Contact, patch crm.ContactPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	values, err := patch.Values()
	if err != nil {
		return err
	}
	q, err := tenant.Scoped(ctx, r.db, contact.TenantID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	cols := fieldColumns(values)
	cols["version"] = gorm.Expr("version + 1")
	cols["updated_at"] = now

	result := q.Model(&models.ContactModel{}).
		Where("id = ? AND version = ?", contact.ID, contact.Version).
		Updates(cols)
	if result.Error != nil {
		return translateError(result.Error, crm.ErrContactNotFound, crm.ErrEmailTaken)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	contact.Apply(patch)
	contact.Version++
	contact.UpdatedAt = now
	return nil
}

// Ensure GormContactRepository implements crm.ContactRepository
var _ crm.ContactRepository = (*GormContactRepository)(nil)
