package crm

import (
	"github.com/erp/records/internal/domain/shared"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusTrial     TenantStatus = "trial"
)

// Tenant is the owner of every account, contact and propagation job.
// Background workers resolve it to re-establish tenant scope.
type Tenant struct {
	shared.BaseAggregateRoot
	Code   string
	Name   string
	Status TenantStatus
}

// IsOperational reports whether work may run on behalf of the tenant
func (t *Tenant) IsOperational() bool {
	return t.Status == TenantStatusActive || t.Status == TenantStatusTrial
}
