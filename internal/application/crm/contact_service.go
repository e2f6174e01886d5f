package crm

import (
	"context"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/google/uuid"
)

// ContactService handles contact operations
type ContactService struct {
	uow     propagation.UnitOfWork
	mutator *Mutator
}

// NewContactService creates a new ContactService
func NewContactService(uow propagation.UnitOfWork, mutator *Mutator) *ContactService {
	return &ContactService{uow: uow, mutator: mutator}
}

// UpdateContactResult is the outcome of Update
type UpdateContactResult struct {
	Contact *crm.Contact
	Changed crm.FieldSet
	Job     *propagation.JobHandle
}

// Create creates a contact under an existing account of the tenant
func (s *ContactService) Create(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, in CreateContactInput) (*crm.Contact, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var contact *crm.Contact
	err := s.uow.Do(ctx, func(ctx context.Context, stores propagation.Stores) error {
		if _, err := stores.Accounts.FindByID(ctx, tenantID, in.AccountID); err != nil {
			return err
		}
		c, err := crm.NewContact(tenantID, in.AccountID, actorID, in.FirstName, in.LastName, in.Email)
		if err != nil {
			return err
		}
		if in.ExternalProfileRef != nil && *in.ExternalProfileRef != "" {
			ref := *in.ExternalProfileRef
			c.ExternalProfileRef = &ref
		}
		if err := s.mutator.CreateContact(ctx, stores, actorID, c); err != nil {
			return err
		}
		contact = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// Update writes the fields named in in.UpdateFields
func (s *ContactService) Update(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, in UpdateContactInput) (*UpdateContactResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	patch, err := in.Patch()
	if err != nil {
		return nil, err
	}

	var result UpdateContactResult
	err = s.uow.Do(ctx, func(ctx context.Context, stores propagation.Stores) error {
		contact, err := stores.Contacts.FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		update, err := s.mutator.UpdateContact(ctx, stores, actorID, contact, patch)
		if err != nil {
			return err
		}
		result = UpdateContactResult{Contact: contact, Changed: update.Changed, Job: update.Job}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Get loads a contact
func (s *ContactService) Get(ctx context.Context, tenantID, id uuid.UUID) (*crm.Contact, error) {
	var contact *crm.Contact
	err := s.uow.Do(ctx, func(ctx context.Context, stores propagation.Stores) error {
		var err error
		contact, err = stores.Contacts.FindByID(ctx, tenantID, id)
		return err
	})
	return contact, err
}
