package crm

import (
	"context"
	"fmt"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/erp/records/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mutation describes a committed-to-be write of one account or contact.
// Exactly one of Account and Contact is set.
type Mutation struct {
	TenantID      uuid.UUID
	ActorID       *uuid.UUID
	Created       bool
	ChangedFields crm.FieldSet
	Account       *crm.Account
	Contact       *crm.Contact
}

func (m Mutation) subject() (propagation.SubjectKind, uuid.UUID, error) {
	switch {
	case m.Account != nil && m.Contact == nil:
		return propagation.SubjectAccount, m.Account.ID, nil
	case m.Contact != nil && m.Account == nil:
		return propagation.SubjectContact, m.Contact.ID, nil
	default:
		return "", uuid.Nil, fmt.Errorf("mutation must describe exactly one account or contact")
	}
}

// ChangeDetector decides whether a mutation warrants propagation and, if
// so, enqueues a job through the caller's unit of work
type ChangeDetector struct {
	maxDepth int
	metrics  *telemetry.PropagationMetrics
}

// NewChangeDetector creates a detector. metrics may be nil.
func NewChangeDetector(maxDepth int, metrics *telemetry.PropagationMetrics) *ChangeDetector {
	return &ChangeDetector{maxDepth: maxDepth, metrics: metrics}
}

// Detect enqueues a propagation job when the mutation is an update of a
// sync-relevant field of an individual account or of a contact owned by
// one. It returns nil when no job is warranted. Errors must abort the
// caller's transaction.
func (d *ChangeDetector) Detect(ctx context.Context, stores propagation.Stores, m Mutation) (*propagation.JobHandle, error) {
	kind, subjectID, err := m.subject()
	if err != nil {
		return nil, err
	}
	log := logger.L(ctx).With(
		zap.String("subject_kind", string(kind)),
		zap.String("subject_id", subjectID.String()),
	)

	if m.Created {
		return nil, nil
	}
	if !m.ChangedFields.Intersects(crm.SyncRelevantFields) {
		log.Debug("No sync-relevant field changed", zap.String("changed_fields", m.ChangedFields.String()))
		return nil, nil
	}

	account := m.Account
	if kind == propagation.SubjectContact {
		account, err = stores.Accounts.FindByID(ctx, m.TenantID, m.Contact.AccountID)
		if err != nil {
			return nil, fmt.Errorf("load owning account of contact %s: %w", m.Contact.ID, err)
		}
	}

	resolver := crm.NewHierarchyResolver(stores.Accounts, stores.Classifications, d.maxDepth)
	individual, err := resolver.IsIndividual(ctx, account)
	if err != nil {
		return nil, err
	}
	if !individual {
		log.Debug("Account is not individual, no propagation")
		return nil, nil
	}

	job := propagation.NewJob(m.TenantID, m.ActorID, kind, subjectID, m.ChangedFields)
	handle, err := stores.Queue.Enqueue(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("enqueue propagation for %s %s: %w", kind, subjectID, err)
	}
	d.metrics.RecordEnqueued(ctx, string(kind))

	log.Info("Propagation job enqueued",
		zap.String("job_id", handle.ID.String()),
		zap.String("changed_fields", m.ChangedFields.String()),
	)
	return &handle, nil
}
