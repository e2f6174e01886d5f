package crm

import (
	"context"
	"errors"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService handles account operations
type AccountService struct {
	uow     propagation.UnitOfWork
	mutator *Mutator
}

// NewAccountService creates a new AccountService
func NewAccountService(uow propagation.UnitOfWork, mutator *Mutator) *AccountService {
	return &AccountService{uow: uow, mutator: mutator}
}

// CreateAccountResult is the outcome of Create. Contact is the counterpart
// created for an individual account, nil otherwise.
type CreateAccountResult struct {
	Account *crm.Account
	Contact *crm.Contact
}

// UpdateAccountResult is the outcome of Update. Job is nil when the write
// warranted no propagation.
type UpdateAccountResult struct {
	Account *crm.Account
	Changed crm.FieldSet
	Job     *propagation.JobHandle
}

// Create creates an account. A branch without a classification inherits
// its parent's effective classification. Individual accounts get their
// counterpart contact in the same transaction. Creation never enqueues
// propagation.
func (s *AccountService) Create(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, in CreateAccountInput) (*CreateAccountResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var result CreateAccountResult
	err := s.uow.Do(ctx, func(ctx context.Context, stores propagation.Stores) error {
		account, err := crm.NewAccount(tenantID, actorID, in.Name, in.Email)
		if err != nil {
			return err
		}
		account.ClassificationID = copyID(in.ClassificationID)
		account.ParentID = copyID(in.ParentID)

		resolver := s.mutator.Resolver(stores)
		if account.ClassificationID == nil && account.ParentID != nil {
			parent, err := stores.Accounts.FindByID(ctx, tenantID, *account.ParentID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return crm.ErrParentNotFound
				}
				return err
			}
			if account.ClassificationID, err = resolver.EffectiveClassification(ctx, parent); err != nil {
				return err
			}
		}
		if account.ClassificationID != nil {
			if _, err := stores.Classifications.FindByID(ctx, tenantID, *account.ClassificationID); err != nil {
				return err
			}
		}

		if err := s.mutator.CreateAccount(ctx, stores, actorID, account); err != nil {
			return err
		}
		result.Account = account

		individual, err := resolver.IsIndividual(ctx, account)
		if err != nil || !individual {
			return err
		}
		contact, err := crm.NewCounterpartContact(account, actorID)
		if err != nil {
			return err
		}
		if err := s.mutator.CreateContact(ctx, stores, actorID, contact); err != nil {
			return err
		}
		result.Contact = contact
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{zap.String("account_id", result.Account.ID.String())}
	if result.Contact != nil {
		fields = append(fields, zap.String("contact_id", result.Contact.ID.String()))
	}
	logger.L(ctx).Info("Account created", fields...)
	return &result, nil
}

// Update writes the fields named in in.UpdateFields
func (s *AccountService) Update(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, in UpdateAccountInput) (*UpdateAccountResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	patch, err := in.Patch()
	if err != nil {
		return nil, err
	}

	var result UpdateAccountResult
	err = s.uow.Do(ctx, func(ctx context.Context, stores propagation.Stores) error {
		account, err := stores.Accounts.FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		update, err := s.mutator.UpdateAccount(ctx, stores, actorID, account, patch)
		if err != nil {
			return err
		}
		result = UpdateAccountResult{Account: account, Changed: update.Changed, Job: update.Job}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Get loads an account
func (s *AccountService) Get(ctx context.Context, tenantID, id uuid.UUID) (*crm.Account, error) {
	var account *crm.Account
	err := s.uow.Do(ctx, func(ctx context.Context, stores propagation.Stores) error {
		var err error
		account, err = stores.Accounts.FindByID(ctx, tenantID, id)
		return err
	})
	return account, err
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
