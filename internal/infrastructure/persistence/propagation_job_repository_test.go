package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(tenantID uuid.UUID, createdAt time.Time) *propagation.Job {
	job := propagation.NewJob(tenantID, nil, propagation.SubjectAccount, uuid.New(), crm.NewFieldSet(crm.FieldName))
	job.CreatedAt = createdAt
	job.UpdatedAt = createdAt
	return job
}

func TestGormJobRepository_ClaimDue(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	tenantID := uuid.New()

	t.Run("claims pending jobs oldest first and counts the attempt", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormJobRepository(db)
		older := newTestJob(tenantID, now.Add(-2*time.Minute))
		newer := newTestJob(tenantID, now.Add(-time.Minute))
		require.NoError(t, repo.Save(ctx, newer, older))

		claimed, err := repo.ClaimDue(ctx, now, now.Add(-time.Hour), 1)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, older.ID, claimed[0].ID)
		assert.Equal(t, 1, claimed[0].Attempts)

		stored, err := repo.FindByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, propagation.JobStatusProcessing, stored.Status)
		assert.NotNil(t, stored.ClaimedAt)

		// claimed job is not handed out twice
		claimed, err = repo.ClaimDue(ctx, now, now.Add(-time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, newer.ID, claimed[0].ID)
	})

	t.Run("failed jobs wait for their backoff", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormJobRepository(db)
		job := newTestJob(tenantID, now.Add(-time.Minute))
		require.NoError(t, job.MarkProcessing())
		job.MarkFailed("boom", time.Minute)
		require.NoError(t, repo.Save(ctx, job))

		claimed, err := repo.ClaimDue(ctx, now, now.Add(-time.Hour), 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)

		claimed, err = repo.ClaimDue(ctx, now.Add(2*time.Minute), now.Add(-time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, 2, claimed[0].Attempts)
	})

	t.Run("stale processing job is reclaimed", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormJobRepository(db)
		job := newTestJob(tenantID, now.Add(-time.Hour))
		require.NoError(t, job.MarkProcessing())
		claimedAt := now.Add(-30 * time.Minute)
		job.ClaimedAt = &claimedAt
		require.NoError(t, repo.Save(ctx, job))

		claimed, err := repo.ClaimDue(ctx, now, now.Add(-5*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, 2, claimed[0].Attempts)
	})

	t.Run("stale job on final attempt dies", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormJobRepository(db)
		job := newTestJob(tenantID, now.Add(-time.Hour))
		job.Attempts = job.MaxAttempts - 1
		require.NoError(t, job.MarkProcessing())
		claimedAt := now.Add(-30 * time.Minute)
		job.ClaimedAt = &claimedAt
		require.NoError(t, repo.Save(ctx, job))

		claimed, err := repo.ClaimDue(ctx, now, now.Add(-5*time.Minute), 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)

		stored, err := repo.FindByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, propagation.JobStatusDead, stored.Status)
	})

	t.Run("completed and dead jobs are never claimed", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormJobRepository(db)
		done := newTestJob(tenantID, now)
		done.MarkCompleted()
		dead := newTestJob(tenantID, now)
		dead.MarkDead("fatal")
		require.NoError(t, repo.Save(ctx, done, dead))

		claimed, err := repo.ClaimDue(ctx, now.Add(time.Hour), now, 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)
	})
}

func TestGormJobRepository_Settle(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("writes the outcome of the current claim", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormJobRepository(db)
		require.NoError(t, repo.Save(ctx, newTestJob(uuid.New(), now.Add(-time.Minute))))

		claimed, err := repo.ClaimDue(ctx, now, now.Add(-time.Hour), 1)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		job := claimed[0]
		job.MarkCompleted()
		require.NoError(t, repo.Settle(ctx, job, 1))

		stored, err := repo.FindByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, propagation.JobStatusCompleted, stored.Status)
	})

	t.Run("a reclaimed job rejects the earlier delivery", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormJobRepository(db)
		require.NoError(t, repo.Save(ctx, newTestJob(uuid.New(), now.Add(-time.Minute))))

		first, err := repo.ClaimDue(ctx, now, now.Add(-time.Hour), 1)
		require.NoError(t, err)
		require.Len(t, first, 1)

		// the visibility timeout passes and another worker takes the job
		second, err := repo.ClaimDue(ctx, now, now.Add(time.Hour), 1)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, 2, second[0].Attempts)

		slow := first[0]
		slow.MarkFailed("late outcome", time.Minute)
		assert.ErrorIs(t, repo.Settle(ctx, slow, 1), propagation.ErrStaleDelivery)

		stored, err := repo.FindByID(ctx, slow.ID)
		require.NoError(t, err)
		assert.Equal(t, propagation.JobStatusProcessing, stored.Status)
		assert.Equal(t, 2, stored.Attempts)
		assert.Empty(t, stored.LastError)
	})

	t.Run("released claim goes back to pending", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormJobRepository(db)
		require.NoError(t, repo.Save(ctx, newTestJob(uuid.New(), now.Add(-time.Minute))))

		claimed, err := repo.ClaimDue(ctx, now, now.Add(-time.Hour), 1)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		job := claimed[0]
		job.Release()
		require.NoError(t, repo.Settle(ctx, job, 1))

		again, err := repo.ClaimDue(ctx, now, now.Add(-time.Hour), 1)
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, 1, again[0].Attempts)
	})
}

func TestGormJobRepository_ClaimDueLocksRows(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormJobRepository(db.DB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "propagation_jobs" WHERE .* ORDER BY created_at ASC, id ASC LIMIT \S+ FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	claimed, err := repo.ClaimDue(context.Background(), time.Now(), time.Now(), 5)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormJobRepository_DeadLetterQueries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormJobRepository(db)
	ctx := context.Background()
	now := time.Now()
	tenantA, tenantB := uuid.New(), uuid.New()

	deadA := newTestJob(tenantA, now)
	deadA.MarkDead("fatal")
	deadB := newTestJob(tenantB, now)
	deadB.MarkDead("fatal")
	pendingA := newTestJob(tenantA, now)
	require.NoError(t, repo.Save(ctx, deadA, deadB, pendingA))

	t.Run("find by tenant and status", func(t *testing.T) {
		jobs, total, err := repo.Find(ctx, propagation.JobFilter{TenantID: &tenantA, Status: propagation.JobStatusDead})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, jobs, 1)
		assert.Equal(t, deadA.ID, jobs[0].ID)
		assert.True(t, jobs[0].ChangedFields.Has(crm.FieldName))
	})

	t.Run("count by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[propagation.JobStatusDead])
		assert.Equal(t, int64(1), counts[propagation.JobStatusPending])

		counts, err = repo.CountByStatus(ctx, &tenantB)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[propagation.JobStatusDead])
		assert.Zero(t, counts[propagation.JobStatusPending])
	})

	t.Run("update unknown job", func(t *testing.T) {
		err := repo.Update(ctx, newTestJob(tenantA, now))
		assert.True(t, IsJobNotFound(err))
	})
}

func TestGormJobRepository_DeleteCompletedBefore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormJobRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	old := newTestJob(tenantID, time.Now())
	old.MarkCompleted()
	past := time.Now().Add(-48 * time.Hour)
	old.ProcessedAt = &past
	fresh := newTestJob(tenantID, time.Now())
	fresh.MarkCompleted()
	pending := newTestJob(tenantID, time.Now())
	require.NoError(t, repo.Save(ctx, old, fresh, pending))

	deleted, err := repo.DeleteCompletedBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestGormUnitOfWork(t *testing.T) {
	db := setupTestDB(t)
	queue := NewGormJobQueue(db, 5)
	uow := NewGormUnitOfWork(db, queue)
	jobs := NewGormJobRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("commit keeps entity write and job together", func(t *testing.T) {
		var handle propagation.JobHandle
		err := uow.Do(ctx, func(ctx context.Context, s propagation.Stores) error {
			account, err := crm.NewAccount(tenantID, nil, "Acme", nil)
			if err != nil {
				return err
			}
			if err := s.Accounts.Create(ctx, account); err != nil {
				return err
			}
			handle, err = s.Queue.Enqueue(ctx, propagation.NewJob(tenantID, nil, propagation.SubjectAccount, account.ID, crm.NewFieldSet(crm.FieldName)))
			return err
		})
		require.NoError(t, err)

		job, err := jobs.FindByID(ctx, handle.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, job.MaxAttempts)
		assert.Equal(t, tenantID, handle.TenantID)
	})

	t.Run("rollback discards both", func(t *testing.T) {
		var accountID, jobID uuid.UUID
		err := uow.Do(ctx, func(ctx context.Context, s propagation.Stores) error {
			account, err := crm.NewAccount(tenantID, nil, "Doomed", nil)
			if err != nil {
				return err
			}
			accountID = account.ID
			if err := s.Accounts.Create(ctx, account); err != nil {
				return err
			}
			handle, err := s.Queue.Enqueue(ctx, propagation.NewJob(tenantID, nil, propagation.SubjectAccount, account.ID, crm.NewFieldSet(crm.FieldName)))
			if err != nil {
				return err
			}
			jobID = handle.ID
			return errors.New("abort")
		})
		require.Error(t, err)

		_, err = NewGormAccountRepository(db).FindByID(ctx, tenantID, accountID)
		assert.ErrorIs(t, err, crm.ErrAccountNotFound)
		_, err = jobs.FindByID(ctx, jobID)
		assert.True(t, IsJobNotFound(err))
	})

	t.Run("invalid subject kind is rejected", func(t *testing.T) {
		job := propagation.NewJob(tenantID, nil, "invoice", uuid.New(), crm.NewFieldSet())
		_, err := queue.Enqueue(ctx, job)
		assert.Error(t, err)
	})
}
