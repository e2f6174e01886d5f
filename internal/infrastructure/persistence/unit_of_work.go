package persistence

import (
	"context"

	"github.com/erp/records/internal/domain/propagation"
	"gorm.io/gorm"
)

// GormUnitOfWork implements propagation.UnitOfWork with a GORM transaction
type GormUnitOfWork struct {
	db              *gorm.DB
	accounts        *GormAccountRepository
	contacts        *GormContactRepository
	classifications *GormClassificationRepository
	queue           *GormJobQueue
}

// NewGormUnitOfWork creates a unit of work over db
func NewGormUnitOfWork(db *gorm.DB, queue *GormJobQueue) *GormUnitOfWork {
	return &GormUnitOfWork{
		db:              db,
		accounts:        NewGormAccountRepository(db),
		contacts:        NewGormContactRepository(db),
		classifications: NewGormClassificationRepository(db),
		queue:           queue,
	}
}

// Do runs fn in a transaction. A returned error rolls back every write made
// through the stores, including enqueued jobs.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, stores propagation.Stores) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, propagation.Stores{
			Accounts:        u.accounts.WithTx(tx),
			Contacts:        u.contacts.WithTx(tx),
			Classifications: u.classifications.WithTx(tx),
			Queue:           u.queue.WithTx(tx),
		})
	})
}

// Ensure GormUnitOfWork implements propagation.UnitOfWork
var _ propagation.UnitOfWork = (*GormUnitOfWork)(nil)
