package crm

import (
	"context"
	"fmt"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/google/uuid"
)

// Mutator is the single write path for accounts and contacts. Services and
// the sync engine both write through it, so every update is validated,
// written field-scoped under a version check, and shown to the change
// detector inside the same transaction.
type Mutator struct {
	detector *ChangeDetector
	maxDepth int
}

// NewMutator creates a mutator
func NewMutator(detector *ChangeDetector, maxDepth int) *Mutator {
	return &Mutator{detector: detector, maxDepth: maxDepth}
}

// Resolver returns a hierarchy resolver bound to stores
func (m *Mutator) Resolver(stores propagation.Stores) *crm.HierarchyResolver {
	return crm.NewHierarchyResolver(stores.Accounts, stores.Classifications, m.maxDepth)
}

// AccountUpdate is the effect of an account write
type AccountUpdate struct {
	Changed crm.FieldSet
	Job     *propagation.JobHandle
}

// UpdateAccount writes the fields of patch that differ from account.
// account is updated in place on success.
func (m *Mutator) UpdateAccount(ctx context.Context, stores propagation.Stores, actorID *uuid.UUID, account *crm.Account, patch crm.AccountPatch) (AccountUpdate, error) {
	patch = account.Diff(patch)
	if patch.IsEmpty() {
		return AccountUpdate{Changed: crm.NewFieldSet()}, nil
	}
	if err := patch.Validate(); err != nil {
		return AccountUpdate{}, err
	}

	candidate := account.Clone()
	candidate.Apply(patch)
	if err := m.Resolver(stores).ValidateStructure(ctx, candidate); err != nil {
		return AccountUpdate{}, err
	}

	if err := stores.Accounts.UpdateFields(ctx, account, patch); err != nil {
		return AccountUpdate{}, fmt.Errorf("update account %s: %w", account.ID, err)
	}

	job, err := m.detector.Detect(ctx, stores, Mutation{
		TenantID:      account.TenantID,
		ActorID:       actorID,
		ChangedFields: patch.Fields(),
		Account:       account,
	})
	if err != nil {
		return AccountUpdate{}, err
	}
	return AccountUpdate{Changed: patch.Fields(), Job: job}, nil
}

// ContactUpdate is the effect of a contact write
type ContactUpdate struct {
	Changed crm.FieldSet
	Job     *propagation.JobHandle
}

// UpdateContact writes the fields of patch that differ from contact.
// contact is updated in place on success.
func (m *Mutator) UpdateContact(ctx context.Context, stores propagation.Stores, actorID *uuid.UUID, contact *crm.Contact, patch crm.ContactPatch) (ContactUpdate, error) {
	patch = contact.Diff(patch)
	if patch.IsEmpty() {
		return ContactUpdate{Changed: crm.NewFieldSet()}, nil
	}
	if err := patch.Validate(); err != nil {
		return ContactUpdate{}, err
	}
	candidate := contact.Clone()
	candidate.Apply(patch)
	if err := candidate.ValidateName(); err != nil {
		return ContactUpdate{}, err
	}
	if email, ok := patch.Email(); ok && email != nil {
		if err := ensureEmailFree(ctx, stores, contact.TenantID, *email, &contact.ID); err != nil {
			return ContactUpdate{}, err
		}
	}

	if err := stores.Contacts.UpdateFields(ctx, contact, patch); err != nil {
		return ContactUpdate{}, fmt.Errorf("update contact %s: %w", contact.ID, err)
	}

	job, err := m.detector.Detect(ctx, stores, Mutation{
		TenantID:      contact.TenantID,
		ActorID:       actorID,
		ChangedFields: patch.Fields(),
		Contact:       contact,
	})
	if err != nil {
		return ContactUpdate{}, err
	}
	return ContactUpdate{Changed: patch.Fields(), Job: job}, nil
}

// CreateAccount validates the account structure and inserts it
func (m *Mutator) CreateAccount(ctx context.Context, stores propagation.Stores, actorID *uuid.UUID, account *crm.Account) error {
	if err := m.Resolver(stores).ValidateStructure(ctx, account); err != nil {
		return err
	}
	if err := stores.Accounts.Create(ctx, account); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	_, err := m.detector.Detect(ctx, stores, Mutation{
		TenantID:      account.TenantID,
		ActorID:       actorID,
		Created:       true,
		ChangedFields: crm.NewFieldSet(),
		Account:       account,
	})
	return err
}

// CreateContact inserts a contact after checking email uniqueness
func (m *Mutator) CreateContact(ctx context.Context, stores propagation.Stores, actorID *uuid.UUID, contact *crm.Contact) error {
	if contact.Email != nil {
		if err := ensureEmailFree(ctx, stores, contact.TenantID, *contact.Email, nil); err != nil {
			return err
		}
	}
	if err := stores.Contacts.Create(ctx, contact); err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	_, err := m.detector.Detect(ctx, stores, Mutation{
		TenantID:      contact.TenantID,
		ActorID:       actorID,
		Created:       true,
		ChangedFields: crm.NewFieldSet(),
		Contact:       contact,
	})
	return err
}

func ensureEmailFree(ctx context.Context, stores propagation.Stores, tenantID uuid.UUID, email string, excludeID *uuid.UUID) error {
	taken, err := stores.Contacts.ExistsByEmail(ctx, tenantID, email, excludeID)
	if err != nil {
		return fmt.Errorf("check contact email: %w", err)
	}
	if taken {
		return crm.ErrEmailTaken
	}
	return nil
}
