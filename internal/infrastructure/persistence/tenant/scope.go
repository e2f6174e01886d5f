// Package tenant provides tenant scoping for GORM queries.
//
// Every repository call takes the tenant explicitly. When the context also
// carries a tenant (bound by logger.WithTenantID in request handlers and
// job workers) the two must agree; a mismatch is refused before any SQL runs.
//
// Usage:
//
//	q, err := tenant.Scoped(ctx, db, tenantID)
//	if err != nil { return err }
//	q.Find(&accounts) // WHERE tenant_id = 'xxx'
package tenant

import (
	"context"
	"fmt"

	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a tenant is required but missing
var ErrTenantIDRequired = shared.NewDomainError("TENANT_CONTEXT", "tenant_id is required but not found in context")

// TenantScope applies tenant filtering to GORM queries
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// Guard verifies that the tenant bound to ctx, if any, matches tenantID
func Guard(ctx context.Context, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	bound, ok := logger.TenantIDFromContext(ctx)
	if ok && bound != tenantID {
		return shared.WrapDomainError("TENANT_CONTEXT",
			"tenant mismatch",
			fmt.Errorf("context tenant %s, requested tenant %s", bound, tenantID))
	}
	return nil
}

// Require returns the tenant bound to ctx
func Require(ctx context.Context) (uuid.UUID, error) {
	id, ok := logger.TenantIDFromContext(ctx)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrTenantIDRequired
	}
	return id, nil
}

// Scoped returns db bound to ctx and filtered to tenantID
func Scoped(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) (*gorm.DB, error) {
	if err := Guard(ctx, tenantID); err != nil {
		return nil, err
	}
	return db.WithContext(ctx).Scopes(TenantScope(tenantID)), nil
}
