package crm

import (
	"strings"

	"github.com/erp/records/internal/domain/crm"
	"github.com/erp/records/internal/domain/shared"
	"github.com/google/uuid"
)

// CreateAccountInput represents a request to create an account
type CreateAccountInput struct {
	Name             string     `json:"name" validate:"required,max=200"`
	Email            *string    `json:"email" validate:"omitempty,email,max=200"`
	ClassificationID *uuid.UUID `json:"classification_id"`
	ParentID         *uuid.UUID `json:"parent_id"`
}

// UpdateAccountInput is a field-scoped account update. Only the fields
// named in UpdateFields are written; a nil value clears a nullable field.
type UpdateAccountInput struct {
	UpdateFields     []string   `json:"update_fields" validate:"required,min=1,dive,oneof=name email parent_id classification_id"`
	Name             *string    `json:"name" validate:"omitempty,max=200"`
	Email            *string    `json:"email" validate:"omitempty,email,max=200"`
	ClassificationID *uuid.UUID `json:"classification_id"`
	ParentID         *uuid.UUID `json:"parent_id"`
}

// Patch converts the input into an account patch
func (in UpdateAccountInput) Patch() (crm.AccountPatch, error) {
	fields, unknown := crm.ParseFieldSet(in.UpdateFields)
	if len(unknown) > 0 {
		return crm.AccountPatch{}, unknownFieldsError(unknown)
	}
	var p crm.AccountPatch
	for _, f := range fields.Sorted() {
		switch f {
		case crm.FieldName:
			if in.Name == nil {
				return crm.AccountPatch{}, shared.NewDomainError("INVALID_INPUT", "name cannot be cleared")
			}
			p.SetName(*in.Name)
		case crm.FieldEmail:
			p.SetEmail(in.Email)
		case crm.FieldParent:
			p.SetParent(in.ParentID)
		case crm.FieldClassification:
			p.SetClassification(in.ClassificationID)
		default:
			return crm.AccountPatch{}, unknownFieldsError([]string{string(f)})
		}
	}
	return p, nil
}

// CreateContactInput represents a request to create a contact
type CreateContactInput struct {
	AccountID          uuid.UUID `json:"account_id" validate:"required"`
	FirstName          string    `json:"first_name" validate:"max=200"`
	LastName           string    `json:"last_name" validate:"max=200"`
	Email              *string   `json:"email" validate:"omitempty,email,max=200"`
	ExternalProfileRef *string   `json:"external_profile_ref" validate:"omitempty,max=200"`
}

// UpdateContactInput is a field-scoped contact update
type UpdateContactInput struct {
	UpdateFields       []string `json:"update_fields" validate:"required,min=1,dive,oneof=first_name last_name email external_profile_ref"`
	FirstName          *string  `json:"first_name" validate:"omitempty,max=200"`
	LastName           *string  `json:"last_name" validate:"omitempty,max=200"`
	Email              *string  `json:"email" validate:"omitempty,email,max=200"`
	ExternalProfileRef *string  `json:"external_profile_ref" validate:"omitempty,max=200"`
}

// Patch converts the input into a contact patch. A nil name clears it to "".
func (in UpdateContactInput) Patch() (crm.ContactPatch, error) {
	fields, unknown := crm.ParseFieldSet(in.UpdateFields)
	if len(unknown) > 0 {
		return crm.ContactPatch{}, unknownFieldsError(unknown)
	}
	var p crm.ContactPatch
	for _, f := range fields.Sorted() {
		switch f {
		case crm.FieldFirstName:
			p.SetFirstName(deref(in.FirstName))
		case crm.FieldLastName:
			p.SetLastName(deref(in.LastName))
		case crm.FieldEmail:
			p.SetEmail(in.Email)
		case crm.FieldExternalProfileRef:
			p.SetExternalProfileRef(in.ExternalProfileRef)
		default:
			return crm.ContactPatch{}, unknownFieldsError([]string{string(f)})
		}
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func unknownFieldsError(fields []string) error {
	return shared.NewDomainError("INVALID_INPUT", "unknown or non-updatable fields: "+strings.Join(fields, ", "))
}
