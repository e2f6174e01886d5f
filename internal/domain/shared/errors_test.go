package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches by code", func(t *testing.T) {
		err := NewDomainError("NOT_FOUND", "account not found")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrAlreadyExists))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load subject: %w", NewDomainError("CONCURRENCY_CONFLICT", "stale version"))
		assert.True(t, errors.Is(err, ErrConcurrencyConflict))
		assert.Equal(t, "CONCURRENCY_CONFLICT", CodeOf(err))
	})

	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := WrapDomainError("TENANT_CONTEXT", "tenant lookup failed", cause)
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, ErrTenantContext)
		assert.Equal(t, "tenant lookup failed: connection refused", err.Error())
	})

	t.Run("code of plain error is empty", func(t *testing.T) {
		assert.Empty(t, CodeOf(errors.New("boom")))
	})
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 5, 1, 2)
	assert.Equal(t, 3, p.TotalPages)

	page, size := NormalizePage(0, 500, 100)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, size)
}
