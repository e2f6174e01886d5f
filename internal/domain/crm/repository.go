package crm

import (
	"context"

	"github.com/google/uuid"
)

// AccountReader loads accounts within a tenant
type AccountReader interface {
	// FindByID returns ErrAccountNotFound when the account does not exist in the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
}

// AccountRepository defines persistence for accounts
type AccountRepository interface {
	AccountReader
	Create(ctx context.Context, account *Account) error
	// UpdateFields writes only the patched columns, conditioned on the
	// account's current version. On success the patch is applied to account
	// and its version is incremented.
	UpdateFields(ctx context.Context, account *Account, patch AccountPatch) error
	ListChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]*Account, error)
}

// ContactRepository defines persistence for contacts
type ContactRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Contact, error)
	// FindCounterpart returns the earliest created contact of the account
	// (ordered by created_at, then id). ErrContactNotFound when none exists.
	FindCounterpart(ctx context.Context, tenantID, accountID uuid.UUID) (*Contact, error)
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]*Contact, error)
	ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string, excludeID *uuid.UUID) (bool, error)
	Create(ctx context.Context, contact *Contact) error
	UpdateFields(ctx context.Context, contact *Contact, patch ContactPatch) error
}

// ClassificationRepository loads classification groups
type ClassificationRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ClassificationGroup, error)
	Create(ctx context.Context, group *ClassificationGroup) error
}

// TenantRepository loads tenants
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}
