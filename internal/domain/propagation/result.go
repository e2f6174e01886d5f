package propagation

import (
	"github.com/erp/records/internal/domain/crm"
	"github.com/google/uuid"
)

// Operation names a propagation direction
type Operation string

const (
	OpAccountToContact  Operation = "account_to_contact"
	OpContactToAccount  Operation = "contact_to_account"
	OpContactToExternal Operation = "contact_to_external"
)

// SkipReason explains why a job completed without doing work
type SkipReason string

const (
	SkipSubjectNotFound     SkipReason = "subject_not_found"
	SkipNotIndividual       SkipReason = "not_individual"
	SkipNoRelevantChange    SkipReason = "no_relevant_change"
	SkipCounterpartNotFound SkipReason = "counterpart_not_found"
	SkipAlreadyCompleted    SkipReason = "already_completed"
)

// OpResult records one operation of a propagation run.
// TargetID is the counterpart entity id, or nil for the external profile.
type OpResult struct {
	Op            Operation   `json:"op"`
	SourceID      uuid.UUID   `json:"source_id"`
	TargetID      *uuid.UUID  `json:"target_id,omitempty"`
	ExternalRef   string      `json:"external_ref,omitempty"`
	UpdatedFields []crm.Field `json:"updated_fields"`
	Skipped       SkipReason  `json:"skipped,omitempty"`
}

// Result is the structured outcome of a propagation run
type Result struct {
	SubjectKind SubjectKind `json:"subject_kind"`
	SubjectID   uuid.UUID   `json:"subject_id"`
	Operations  []OpResult  `json:"operations"`
	Skipped     SkipReason  `json:"skipped,omitempty"`
}

// Skip returns a result for a run that did nothing
func Skip(kind SubjectKind, id uuid.UUID, reason SkipReason) Result {
	return Result{SubjectKind: kind, SubjectID: id, Skipped: reason}
}

// Add appends an operation result
func (r *Result) Add(op OpResult) {
	r.Operations = append(r.Operations, op)
}

// Operation returns the result of op, if it ran
func (r Result) Operation(op Operation) (OpResult, bool) {
	for _, o := range r.Operations {
		if o.Op == op {
			return o, true
		}
	}
	return OpResult{}, false
}

// UpdatedFieldCount is the number of fields written across operations
func (r Result) UpdatedFieldCount() int {
	n := 0
	for _, o := range r.Operations {
		n += len(o.UpdatedFields)
	}
	return n
}
