package propagation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want propagation.OutcomeKind
	}{
		{"nil", nil, propagation.OutcomeSuccess},
		{"database error", errors.New("connection reset by peer"), propagation.OutcomeRetryable},
		{"deadline", fmt.Errorf("push profile: %w", context.DeadlineExceeded), propagation.OutcomeRetryable},
		{"profile rejected", fmt.Errorf("%w: profile x: locked", ErrProfileRejected), propagation.OutcomeRetryable},
		{"account vanished", fmt.Errorf("load account: %w", crm.ErrAccountNotFound), propagation.OutcomeRetryable},
		{"version conflict", shared.ErrConcurrencyConflict, propagation.OutcomeRetryable},
		{"cycle", crm.ErrHierarchyCycle, propagation.OutcomeFatal},
		{"classification mismatch", crm.ErrClassificationMismatch, propagation.OutcomeFatal},
		{"depth exceeded", crm.ErrHierarchyDepthExceeded, propagation.OutcomeFatal},
		{"email taken", crm.ErrEmailTaken, propagation.OutcomeFatal},
		{"tenant", shared.WrapDomainError(shared.ErrTenantContext.Code, "tenant is suspended", nil), propagation.OutcomeFatal},
		{"other domain rule", shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty"), propagation.OutcomeFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Classify(tt.err)
			assert.Equal(t, tt.want, outcome.Kind)
			if tt.err != nil {
				assert.ErrorIs(t, outcome.Err, tt.err)
			}
		})
	}
}
