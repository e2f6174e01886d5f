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

// GormAccountRepository implements crm.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormAccountRepository) WithTx(tx *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: tx}
}

// FindByID finds an account within a tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.Account, error) {
	q, err := tenant.Scoped(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	var model models.AccountModel
	if err := q.Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err, crm.ErrAccountNotFound, shared.ErrAlreadyExists)
	}
	return model.ToDomain(), nil
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *crm.Account) error {
	if err := tenant.Guard(ctx, account.TenantID); err != nil {
		return err
	}
	model := models.AccountModelFromDomain(account)
	err := r.db.WithContext(ctx).Create(model).Error
	return translateError(err, crm.ErrAccountNotFound, shared.ErrAlreadyExists)
}

// UpdateFields writes only the patched columns under optimistic locking
func (r *GormAccountRepository) UpdateFields(ctx context.Context, account *crm.Account, patch crm.AccountPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	values, err := patch.Values()
	if err != nil {
		return err
	}
	q, err := tenant.Scoped(ctx, r.db, account.TenantID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	cols := fieldColumns(values)
	cols["version"] = gorm.Expr("version + 1")
	cols["updated_at"] = now

	result := q.Model(&models.AccountModel{}).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Updates(cols)
	if result.Error != nil {
		return translateError(result.Error, crm.ErrAccountNotFound, shared.ErrAlreadyExists)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	account.Apply(patch)
	account.Version++
	account.UpdatedAt = now
	return nil
}

// ListChildren returns the direct children of an account
func (r *GormAccountRepository) ListChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]*crm.Account, error) {
	q, err := tenant.Scoped(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	var rows []models.AccountModel
	if err := q.Where("parent_id = ?", parentID).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]*crm.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts, nil
}

// Ensure GormAccountRepository implements crm.AccountRepository
var _ crm.AccountRepository = (*GormAccountRepository)(nil)
