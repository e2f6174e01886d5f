package propagation

import (
	"context"
	"testing"

	crmapp "github.com/erp/records/internal/application/crm"
	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	*testutil.Fixture
	engine   *SyncEngine
	profiles *testutil.RecordingProfileClient
	accounts *crmapp.AccountService
	contacts *crmapp.ContactService
	actorID  uuid.UUID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := testutil.NewFixture(t)
	mutator := crmapp.NewMutator(crmapp.NewChangeDetector(0, nil), 0)
	profiles := testutil.NewRecordingProfileClient()
	return &engineFixture{
		Fixture:  f,
		engine:   NewSyncEngine(f.UoW, mutator, profiles, nil),
		profiles: profiles,
		accounts: crmapp.NewAccountService(f.UoW, mutator),
		contacts: crmapp.NewContactService(f.UoW, mutator),
		actorID:  testutil.TestUserID(),
	}
}

// createIndividual creates an individual account with its counterpart contact
func (f *engineFixture) createIndividual(t *testing.T, name string, email *string) (*crm.Account, *crm.Contact) {
	t.Helper()
	res, err := f.accounts.Create(context.Background(), f.TenantID, &f.actorID, crmapp.CreateAccountInput{
		Name:             name,
		Email:            email,
		ClassificationID: &f.Individual.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Contact)
	return res.Account, res.Contact
}

func (f *engineFixture) renameAccount(t *testing.T, id uuid.UUID, name string) *propagation.Job {
	t.Helper()
	res, err := f.accounts.Update(context.Background(), f.TenantID, &f.actorID, id, crmapp.UpdateAccountInput{
		UpdateFields: []string{"name"},
		Name:         &name,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Job)
	return f.job(t, res.Job.ID)
}

func (f *engineFixture) updateContact(t *testing.T, id uuid.UUID, in crmapp.UpdateContactInput) *propagation.Job {
	t.Helper()
	res, err := f.contacts.Update(context.Background(), f.TenantID, &f.actorID, id, in)
	require.NoError(t, err)
	require.NotNil(t, res.Job)
	return f.job(t, res.Job.ID)
}

func (f *engineFixture) job(t *testing.T, id uuid.UUID) *propagation.Job {
	t.Helper()
	job, err := f.Jobs.FindByID(context.Background(), id)
	require.NoError(t, err)
	return job
}

// jobsFor returns the jobs enqueued for subject
func (f *engineFixture) jobsFor(t *testing.T, kind propagation.SubjectKind, subjectID uuid.UUID) []*propagation.Job {
	t.Helper()
	var out []*propagation.Job
	for _, job := range f.AllJobs(t) {
		if job.SubjectKind == kind && job.SubjectID == subjectID {
			out = append(out, job)
		}
	}
	return out
}
