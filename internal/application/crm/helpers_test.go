package crm

import (
	"context"
	"testing"

	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/tests/testutil"
	"github.com/stretchr/testify/mock"
)

type servicesUnderTest struct {
	*testutil.Fixture
	accounts *AccountService
	contacts *ContactService
	mutator  *Mutator
}

func newServices(t *testing.T) *servicesUnderTest {
	t.Helper()
	f := testutil.NewFixture(t)
	mutator := NewMutator(NewChangeDetector(0, nil), 0)
	return &servicesUnderTest{
		Fixture:  f,
		accounts: NewAccountService(f.UoW, mutator),
		contacts: NewContactService(f.UoW, mutator),
		mutator:  mutator,
	}
}

// MockQueue is a mock implementation of propagation.Queue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, job *propagation.Job) (propagation.JobHandle, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(propagation.JobHandle), args.Error(1)
}

// queueOverride runs the real unit of work but enqueues through queue
type queueOverride struct {
	inner propagation.UnitOfWork
	queue propagation.Queue
}

func (u queueOverride) Do(ctx context.Context, fn func(ctx context.Context, stores propagation.Stores) error) error {
	return u.inner.Do(ctx, func(ctx context.Context, stores propagation.Stores) error {
		stores.Queue = u.queue
		return fn(ctx, stores)
	})
}
