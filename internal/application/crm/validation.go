package crm

import (
	"github.com/erp/records/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateInput(in any) error {
	if err := validate.Struct(in); err != nil {
		return shared.WrapDomainError(shared.ErrInvalidInput.Code, "Invalid input: "+err.Error(), err)
	}
	return nil
}
