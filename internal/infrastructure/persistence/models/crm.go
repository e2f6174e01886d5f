package models

import (
	"github.com/erp/records/internal/domain/crm"
	"github.com/google/uuid"
)

// ClassificationGroupModel is the persistence model for classification groups
type ClassificationGroupModel struct {
	TenantAggregateModel
	Name string `gorm:"type:varchar(100);not null"`
	Kind string `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (ClassificationGroupModel) TableName() string {
	return "classification_groups"
}

// ToDomain converts the persistence model to a domain ClassificationGroup
func (m *ClassificationGroupModel) ToDomain() *crm.ClassificationGroup {
	return &crm.ClassificationGroup{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Name:                m.Name,
		Kind:                crm.ClassificationKind(m.Kind),
	}
}

// ClassificationGroupModelFromDomain creates a persistence model from a domain group
func ClassificationGroupModelFromDomain(g *crm.ClassificationGroup) *ClassificationGroupModel {
	m := &ClassificationGroupModel{
		Name: g.Name,
		Kind: string(g.Kind),
	}
	m.FromDomainTenantAggregateRoot(g.TenantAggregateRoot)
	return m
}

// AccountModel is the persistence model for accounts
type AccountModel struct {
	TenantAggregateModel
	Name             string     `gorm:"type:varchar(200);not null"`
	Email            *string    `gorm:"type:varchar(200)"`
	ClassificationID *uuid.UUID `gorm:"type:uuid;index"`
	ParentID         *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *crm.Account {
	return &crm.Account{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Name:                m.Name,
		Email:               m.Email,
		ClassificationID:    m.ClassificationID,
		ParentID:            m.ParentID,
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account
func AccountModelFromDomain(a *crm.Account) *AccountModel {
	m := &AccountModel{
		Name:             a.Name,
		Email:            a.Email,
		ClassificationID: a.ClassificationID,
		ParentID:         a.ParentID,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// ContactModel is the persistence model for contacts.
// Email uniqueness is scoped to the tenant; NULL emails never collide.
type ContactModel struct {
	AggregateModel
	TenantID           uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_contacts_tenant_email,priority:1"`
	CreatedBy          *uuid.UUID `gorm:"type:uuid"`
	AccountID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	FirstName          string     `gorm:"type:varchar(200);not null;default:''"`
	LastName           string     `gorm:"type:varchar(200);not null;default:''"`
	Email              *string    `gorm:"type:varchar(200);uniqueIndex:idx_contacts_tenant_email,priority:2"`
	ExternalProfileRef *string    `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ToDomain converts the persistence model to a domain Contact
func (m *ContactModel) ToDomain() *crm.Contact {
	c := &crm.Contact{
		AccountID:          m.AccountID,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		Email:              m.Email,
		ExternalProfileRef: m.ExternalProfileRef,
	}
	c.BaseAggregateRoot = m.ToDomainAggregateRoot()
	c.TenantID = m.TenantID
	c.CreatedBy = m.CreatedBy
	return c
}

// ContactModelFromDomain creates a persistence model from a domain Contact
func ContactModelFromDomain(c *crm.Contact) *ContactModel {
	m := &ContactModel{
		TenantID:           c.TenantID,
		CreatedBy:          c.CreatedBy,
		AccountID:          c.AccountID,
		FirstName:          c.FirstName,
		LastName:           c.LastName,
		Email:              c.Email,
		ExternalProfileRef: c.ExternalProfileRef,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}
