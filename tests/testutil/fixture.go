package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Fixture is a migrated database holding one active tenant with an
// individual and a business classification group
type Fixture struct {
	DB              *gorm.DB
	UoW             *persistence.GormUnitOfWork
	Queue           *persistence.GormJobQueue
	Jobs            *persistence.GormJobRepository
	Accounts        *persistence.GormAccountRepository
	Contacts        *persistence.GormContactRepository
	Classifications *persistence.GormClassificationRepository
	Tenants         *persistence.GormTenantRepository

	TenantID   uuid.UUID
	Individual *crm.ClassificationGroup
	Business   *crm.ClassificationGroup
}

// NewFixture creates a fixture on a fresh in-memory database
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	return NewFixtureOn(t, NewSQLiteDB(t))
}

// NewFixtureOn seeds a fixture on an already migrated database
func NewFixtureOn(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()

	queue := persistence.NewGormJobQueue(db, propagation.DefaultMaxAttempts)
	f := &Fixture{
		DB:              db,
		UoW:             persistence.NewGormUnitOfWork(db, queue),
		Queue:           queue,
		Jobs:            persistence.NewGormJobRepository(db),
		Accounts:        persistence.NewGormAccountRepository(db),
		Contacts:        persistence.NewGormContactRepository(db),
		Classifications: persistence.NewGormClassificationRepository(db),
		Tenants:         persistence.NewGormTenantRepository(db),
	}
	f.TenantID = f.SeedTenant(t, "acme", crm.TenantStatusActive).ID
	f.Individual = f.SeedClassification(t, f.TenantID, "Private customers", crm.ClassificationIndividual)
	f.Business = f.SeedClassification(t, f.TenantID, "Companies", crm.ClassificationBusiness)
	return f
}

// SeedTenant stores a tenant with the given status
func (f *Fixture) SeedTenant(t *testing.T, code string, status crm.TenantStatus) *crm.Tenant {
	t.Helper()
	tenant := &crm.Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              code,
		Status:            status,
	}
	require.NoError(t, f.Tenants.Save(context.Background(), tenant))
	return tenant
}

// SeedClassification stores a classification group
func (f *Fixture) SeedClassification(t *testing.T, tenantID uuid.UUID, name string, kind crm.ClassificationKind) *crm.ClassificationGroup {
	t.Helper()
	group, err := crm.NewClassificationGroup(tenantID, name, kind)
	require.NoError(t, err)
	require.NoError(t, f.Classifications.Create(context.Background(), group))
	return group
}

// SeedAccount stores an account directly, bypassing validation and the
// counterpart contact
func (f *Fixture) SeedAccount(t *testing.T, name string, email *string, classificationID, parentID *uuid.UUID) *crm.Account {
	t.Helper()
	account, err := crm.NewAccount(f.TenantID, nil, name, email)
	require.NoError(t, err)
	account.ClassificationID = classificationID
	account.ParentID = parentID
	require.NoError(t, f.Accounts.Create(context.Background(), account))
	return account
}

// SeedContact stores a contact directly. createdAt orders counterpart lookup.
func (f *Fixture) SeedContact(t *testing.T, account *crm.Account, first, last string, email *string, createdAt time.Time) *crm.Contact {
	t.Helper()
	contact, err := crm.NewContact(account.TenantID, account.ID, nil, first, last, email)
	require.NoError(t, err)
	contact.CreatedAt = createdAt
	contact.UpdatedAt = createdAt
	require.NoError(t, f.Contacts.Create(context.Background(), contact))
	return contact
}

// ReloadAccount reads an account back from the database
func (f *Fixture) ReloadAccount(t *testing.T, id uuid.UUID) *crm.Account {
	t.Helper()
	account, err := f.Accounts.FindByID(context.Background(), f.TenantID, id)
	require.NoError(t, err)
	return account
}

// ReloadContact reads a contact back from the database
func (f *Fixture) ReloadContact(t *testing.T, id uuid.UUID) *crm.Contact {
	t.Helper()
	contact, err := f.Contacts.FindByID(context.Background(), f.TenantID, id)
	require.NoError(t, err)
	return contact
}

// AllJobs returns every propagation job, most recently updated first
func (f *Fixture) AllJobs(t *testing.T) []*propagation.Job {
	t.Helper()
	jobs, _, err := f.Jobs.Find(context.Background(), propagation.JobFilter{PageSize: 200})
	require.NoError(t, err)
	return jobs
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
