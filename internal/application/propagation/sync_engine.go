package propagation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	crmapp "github.com/erp/records/internal/application/crm"
	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/erp/records/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrProfileRejected is returned when the external profile store refuses an update
var ErrProfileRejected = errors.New("external profile update rejected")

var (
	accountSourceFields = crm.NewFieldSet(crm.FieldName, crm.FieldEmail)
	contactSourceFields = crm.NewFieldSet(crm.FieldFirstName, crm.FieldLastName, crm.FieldEmail)
)

// PropagateInput identifies the mutation to propagate
type PropagateInput struct {
	TenantID      uuid.UUID
	ActorID       *uuid.UUID
	Kind          propagation.SubjectKind
	SubjectID     uuid.UUID
	ChangedFields crm.FieldSet
}

// InputFromJob builds the propagation input carried by a job
func InputFromJob(job *propagation.Job) PropagateInput {
	return PropagateInput{
		TenantID:      job.TenantID,
		ActorID:       job.ActorID,
		Kind:          job.SubjectKind,
		SubjectID:     job.SubjectID,
		ChangedFields: job.ChangedFields,
	}
}

// SyncEngine applies the propagation rules between an individual account,
// its counterpart contact and the contact's external profile. Entity
// writes go through the mutator, so a write that changes the counterpart
// enqueues the reverse job, which then finds nothing left to change.
type SyncEngine struct {
	uow      propagation.UnitOfWork
	mutator  *crmapp.Mutator
	profiles propagation.ProfileClient
	metrics  *telemetry.PropagationMetrics
}

// NewSyncEngine creates a sync engine. metrics may be nil.
func NewSyncEngine(uow propagation.UnitOfWork, mutator *crmapp.Mutator, profiles propagation.ProfileClient, metrics *telemetry.PropagationMetrics) *SyncEngine {
	return &SyncEngine{uow: uow, mutator: mutator, profiles: profiles, metrics: metrics}
}

type profilePush struct {
	contactID uuid.UUID
	ref       string
	fields    propagation.ProfileUpdate
}

// Propagate runs the rules for one mutation. Internal writes commit in one
// transaction before the external profile is pushed, so a failed push is
// retried without redoing them.
func (e *SyncEngine) Propagate(ctx context.Context, in PropagateInput) (propagation.Result, error) {
	var (
		result propagation.Result
		push   *profilePush
	)
	err := e.uow.Do(ctx, func(ctx context.Context, stores propagation.Stores) error {
		result = propagation.Result{SubjectKind: in.Kind, SubjectID: in.SubjectID}
		push = nil
		switch in.Kind {
		case propagation.SubjectAccount:
			return e.fromAccount(ctx, stores, in, &result)
		case propagation.SubjectContact:
			var err error
			push, err = e.fromContact(ctx, stores, in, &result)
			return err
		default:
			return shared.NewDomainError("INVALID_SUBJECT_KIND", fmt.Sprintf("unknown subject kind %q", in.Kind))
		}
	})
	if err != nil {
		return propagation.Result{}, err
	}

	if push != nil {
		op, err := e.pushProfile(ctx, push)
		if err != nil {
			return propagation.Result{}, err
		}
		result.Add(op)
	}

	for _, op := range result.Operations {
		e.metrics.RecordSyncOperation(ctx, string(op.Op), len(op.UpdatedFields))
	}
	return result, nil
}

func (e *SyncEngine) fromAccount(ctx context.Context, stores propagation.Stores, in PropagateInput, result *propagation.Result) error {
	log := logger.L(ctx).With(zap.String("account_id", in.SubjectID.String()))

	account, err := stores.Accounts.FindByID(ctx, in.TenantID, in.SubjectID)
	if errors.Is(err, shared.ErrNotFound) {
		log.Debug("Account no longer exists")
		*result = propagation.Skip(in.Kind, in.SubjectID, propagation.SkipSubjectNotFound)
		return nil
	}
	if err != nil {
		return err
	}

	individual, err := e.mutator.Resolver(stores).IsIndividual(ctx, account)
	if err != nil {
		return err
	}
	if !individual {
		log.Debug("Account is no longer individual")
		*result = propagation.Skip(in.Kind, in.SubjectID, propagation.SkipNotIndividual)
		return nil
	}

	relevant := in.ChangedFields.Intersect(accountSourceFields)
	if relevant.IsEmpty() {
		*result = propagation.Skip(in.Kind, in.SubjectID, propagation.SkipNoRelevantChange)
		return nil
	}

	contact, err := stores.Contacts.FindCounterpart(ctx, in.TenantID, account.ID)
	if errors.Is(err, shared.ErrNotFound) {
		log.Info("Individual account has no counterpart contact")
		*result = propagation.Skip(in.Kind, in.SubjectID, propagation.SkipCounterpartNotFound)
		return nil
	}
	if err != nil {
		return err
	}

	var patch crm.ContactPatch
	if relevant.Has(crm.FieldName) {
		first, last := crm.SplitName(account.Name)
		patch.SetFirstName(first)
		patch.SetLastName(last)
	}
	if relevant.Has(crm.FieldEmail) && account.Email != nil {
		patch.SetEmail(account.Email)
	}

	update, err := e.mutator.UpdateContact(ctx, stores, in.ActorID, contact, patch)
	if err != nil {
		return err
	}
	result.Add(propagation.OpResult{
		Op:            propagation.OpAccountToContact,
		SourceID:      account.ID,
		TargetID:      &contact.ID,
		UpdatedFields: update.Changed.Sorted(),
	})
	return nil
}

func (e *SyncEngine) fromContact(ctx context.Context, stores propagation.Stores, in PropagateInput, result *propagation.Result) (*profilePush, error) {
	log := logger.L(ctx).With(zap.String("contact_id", in.SubjectID.String()))

	contact, err := stores.Contacts.FindByID(ctx, in.TenantID, in.SubjectID)
	if errors.Is(err, shared.ErrNotFound) {
		log.Debug("Contact no longer exists")
		*result = propagation.Skip(in.Kind, in.SubjectID, propagation.SkipSubjectNotFound)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	account, err := stores.Accounts.FindByID(ctx, in.TenantID, contact.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account of contact %s: %w", contact.ID, err)
	}
	individual, err := e.mutator.Resolver(stores).IsIndividual(ctx, account)
	if err != nil {
		return nil, err
	}
	if !individual {
		log.Debug("Owning account is no longer individual")
		*result = propagation.Skip(in.Kind, in.SubjectID, propagation.SkipNotIndividual)
		return nil, nil
	}

	relevant := in.ChangedFields.Intersect(contactSourceFields)
	if relevant.IsEmpty() {
		*result = propagation.Skip(in.Kind, in.SubjectID, propagation.SkipNoRelevantChange)
		return nil, nil
	}

	var patch crm.AccountPatch
	if relevant.HasAny(crm.FieldFirstName, crm.FieldLastName) {
		if name := contact.FullName(); strings.TrimSpace(name) != "" {
			patch.SetName(name)
		} else {
			log.Warn("Contact has no name, account name left unchanged")
		}
	}
	if relevant.Has(crm.FieldEmail) && contact.Email != nil {
		patch.SetEmail(contact.Email)
	}

	update, err := e.mutator.UpdateAccount(ctx, stores, in.ActorID, account, patch)
	if err != nil {
		return nil, err
	}
	result.Add(propagation.OpResult{
		Op:            propagation.OpContactToAccount,
		SourceID:      contact.ID,
		TargetID:      &account.ID,
		UpdatedFields: update.Changed.Sorted(),
	})

	profileFields := relevant.Intersect(crm.ProfileFields)
	if !contact.HasExternalProfile() || profileFields.IsEmpty() {
		return nil, nil
	}
	fields := make(propagation.ProfileUpdate, profileFields.Len())
	for _, f := range profileFields.Sorted() {
		switch f {
		case crm.FieldFirstName:
			fields[f] = contact.FirstName
		case crm.FieldLastName:
			fields[f] = contact.LastName
		case crm.FieldEmail:
			fields[f] = contact.Email
		}
	}
	return &profilePush{contactID: contact.ID, ref: *contact.ExternalProfileRef, fields: fields}, nil
}

func (e *SyncEngine) pushProfile(ctx context.Context, push *profilePush) (propagation.OpResult, error) {
	ok, detail, err := e.profiles.SetProfileFields(ctx, push.ref, push.fields)
	if err != nil {
		return propagation.OpResult{}, fmt.Errorf("push external profile %s: %w", push.ref, err)
	}
	if !ok {
		return propagation.OpResult{}, fmt.Errorf("%w: profile %s: %s", ErrProfileRejected, push.ref, detail)
	}

	updated := make([]crm.Field, 0, len(push.fields))
	for f := range push.fields {
		updated = append(updated, f)
	}
	return propagation.OpResult{
		Op:            propagation.OpContactToExternal,
		SourceID:      push.contactID,
		ExternalRef:   push.ref,
		UpdatedFields: crm.NewFieldSet(updated...).Sorted(),
	}, nil
}
