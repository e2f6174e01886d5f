package persistence

import (
	"errors"

	"github.com/erp/records/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps GORM errors onto domain errors. notFound is returned
// for gorm.ErrRecordNotFound and duplicate for unique violations.
func translateError(err error, notFound, duplicate *shared.DomainError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.WrapDomainError(duplicate.Code, duplicate.Message, err)
	default:
		return err
	}
}

// fieldColumns converts field-keyed values into a column update map
func fieldColumns[F ~string](values map[F]any) map[string]any {
	cols := make(map[string]any, len(values)+1)
	for f, v := range values {
		cols[string(f)] = v
	}
	return cols
}
