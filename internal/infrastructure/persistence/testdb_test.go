package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a private in-memory SQLite database with every model migrated.
// A single connection keeps the in-memory schema shared by all statements.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.DB.AutoMigrate(models.AllModels()...))
	return db.DB
}

func seedAccount(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string, parentID *uuid.UUID) *crm.Account {
	t.Helper()
	account, err := crm.NewAccount(tenantID, nil, name, nil)
	require.NoError(t, err)
	account.ParentID = parentID
	require.NoError(t, NewGormAccountRepository(db).Create(context.Background(), account))
	return account
}

func seedContact(t *testing.T, db *gorm.DB, account *crm.Account, first, last string, email *string, createdAt time.Time) *crm.Contact {
	t.Helper()
	contact, err := crm.NewContact(account.TenantID, account.ID, nil, first, last, email)
	require.NoError(t, err)
	contact.CreatedAt = createdAt
	contact.UpdatedAt = createdAt
	require.NoError(t, NewGormContactRepository(db).Create(context.Background(), contact))
	return contact
}

func strPtr(s string) *string {
	return &s
}
