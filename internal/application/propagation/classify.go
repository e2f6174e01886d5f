package propagation

import (
	"context"
	"errors"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/domain/shared"
)

// Classify maps a propagation error to a delivery outcome.
//
// Missing rows, version conflicts, profile store rejections and any error
// that is not a domain error (database, network, timeouts) may resolve on
// a later attempt. Corrupted hierarchies, uniqueness violations, tenant
// failures and other domain rule violations will not.
func Classify(err error) propagation.Outcome {
	if err == nil {
		return propagation.Success(propagation.Result{})
	}

	switch {
	case errors.Is(err, ErrProfileRejected),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, shared.ErrNotFound),
		errors.Is(err, shared.ErrConcurrencyConflict):
		return propagation.RetryableFailure(err)
	case crm.IsStructuralError(err),
		errors.Is(err, shared.ErrAlreadyExists),
		errors.Is(err, shared.ErrTenantContext):
		return propagation.FatalFailure(err)
	}

	var de *shared.DomainError
	if errors.As(err, &de) {
		return propagation.FatalFailure(err)
	}
	return propagation.RetryableFailure(err)
}
