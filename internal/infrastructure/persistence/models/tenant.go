package models

import (
	"github.com/erp/records/internal/domain/crm"
)

// TenantModel is the persistence model for tenants
type TenantModel struct {
	AggregateModel
	Code   string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(200);not null"`
	Status string `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *crm.Tenant {
	return &crm.Tenant{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		Status:            crm.TenantStatus(m.Status),
	}
}

// TenantModelFromDomain creates a persistence model from a domain Tenant
func TenantModelFromDomain(t *crm.Tenant) *TenantModel {
	m := &TenantModel{
		Code:   t.Code,
		Name:   t.Name,
		Status: string(t.Status),
	}
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	return m
}
