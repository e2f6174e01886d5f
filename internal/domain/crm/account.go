package crm

import (
	"fmt"
	"strings"

	"github.com/erp/records/internal/domain/shared"
	"github.com/google/uuid"
)

// Account is a customer record. Accounts form a tree through ParentID;
// a branch account inherits the classification of its root.
type Account struct {
	shared.TenantAggregateRoot
	Name             string
	Email            *string
	ClassificationID *uuid.UUID
	ParentID         *uuid.UUID
}

// NewAccount creates an account
func NewAccount(tenantID uuid.UUID, createdBy *uuid.UUID, name string, email *string) (*Account, error) {
	name = NormalizeAccountName(name)
	if err := validateAccountName(name); err != nil {
		return nil, err
	}
	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, createdBy),
		Name:                name,
		Email:               normalizeEmail(email),
	}, nil
}

// HasParent reports whether the account is a branch
func (a *Account) HasParent() bool {
	return a.ParentID != nil
}

// Clone returns a shallow copy safe to mutate
func (a *Account) Clone() *Account {
	c := *a
	c.Email = cloneString(a.Email)
	c.ClassificationID = cloneUUID(a.ClassificationID)
	c.ParentID = cloneUUID(a.ParentID)
	return &c
}

// Diff narrows p to the fields whose value differs from the account
func (a *Account) Diff(p AccountPatch) AccountPatch {
	out := AccountPatch{}
	for _, f := range p.Fields().Sorted() {
		switch f {
		case FieldName:
			if p.name != a.Name {
				out.SetName(p.name)
			}
		case FieldEmail:
			if !equalString(p.email, a.Email) {
				out.SetEmail(p.email)
			}
		case FieldParent:
			if !equalUUID(p.parentID, a.ParentID) {
				out.SetParent(p.parentID)
			}
		case FieldClassification:
			if !equalUUID(p.classificationID, a.ClassificationID) {
				out.SetClassification(p.classificationID)
			}
		}
	}
	return out
}

// Apply writes the patch values onto the account
func (a *Account) Apply(p AccountPatch) {
	for _, f := range p.Fields().Sorted() {
		switch f {
		case FieldName:
			a.Name = p.name
		case FieldEmail:
			a.Email = cloneString(p.email)
		case FieldParent:
			a.ParentID = cloneUUID(p.parentID)
		case FieldClassification:
			a.ClassificationID = cloneUUID(p.classificationID)
		}
	}
}

// AccountPatch is a field-scoped update of an account. Only fields set
// through the setters are part of the patch.
type AccountPatch struct {
	fields           FieldSet
	name             string
	email            *string
	parentID         *uuid.UUID
	classificationID *uuid.UUID
}

func (p *AccountPatch) mark(f Field) {
	if p.fields == nil {
		p.fields = NewFieldSet()
	}
	p.fields.Add(f)
}

// SetName sets the name in its stored form
func (p *AccountPatch) SetName(name string) {
	p.name = NormalizeAccountName(name)
	p.mark(FieldName)
}

// SetEmail sets the email; nil clears it
func (p *AccountPatch) SetEmail(email *string) {
	p.email = normalizeEmail(email)
	p.mark(FieldEmail)
}

// SetParent sets the parent; nil detaches the account into a root
func (p *AccountPatch) SetParent(parentID *uuid.UUID) {
	p.parentID = cloneUUID(parentID)
	p.mark(FieldParent)
}

func (p *AccountPatch) SetClassification(id *uuid.UUID) {
	p.classificationID = cloneUUID(id)
	p.mark(FieldClassification)
}

// Fields returns the set of fields carried by the patch
func (p AccountPatch) Fields() FieldSet {
	if p.fields == nil {
		return NewFieldSet()
	}
	return p.fields
}

func (p AccountPatch) IsEmpty() bool {
	return len(p.fields) == 0
}

// Values returns the new value of every patched field, keyed by field
func (p AccountPatch) Values() (map[Field]any, error) {
	values := make(map[Field]any, len(p.fields))
	for _, f := range p.Fields().Sorted() {
		switch f {
		case FieldName:
			values[f] = p.name
		case FieldEmail:
			values[f] = p.email
		case FieldParent:
			values[f] = p.parentID
		case FieldClassification:
			values[f] = p.classificationID
		default:
			return nil, shared.NewDomainError("INVALID_FIELD", "Field "+string(f)+" does not belong to account")
		}
	}
	return values, nil
}

// Validate checks the values carried by the patch
func (p AccountPatch) Validate() error {
	if p.Fields().Has(FieldName) {
		if err := validateAccountName(p.name); err != nil {
			return err
		}
	}
	return nil
}

func validateAccountName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return shared.NewDomainError("INVALID_ACCOUNT_NAME",
			fmt.Sprintf("Account name cannot exceed %d characters", MaxNameLength))
	}
	return nil
}
