package propagation

import (
	"context"

	"github.com/erp/records/internal/domain/crm"
)

// Stores are the repositories visible inside one unit of work. Entity
// writes and job enqueues made through the same Stores commit or roll
// back together.
type Stores struct {
	Accounts        crm.AccountRepository
	Contacts        crm.ContactRepository
	Classifications crm.ClassificationRepository
	Queue           Queue
}

// UnitOfWork runs fn inside a single transaction
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
