package crm

import (
	"fmt"
	"strings"

	"github.com/erp/records/internal/domain/shared"
	"github.com/google/uuid"
)

// Contact is a person attached to exactly one account. Email is unique
// within a tenant when present.
type Contact struct {
	shared.TenantAggregateRoot
	AccountID          uuid.UUID
	FirstName          string
	LastName           string
	Email              *string
	ExternalProfileRef *string
}

// NewContact creates a contact owned by accountID
func NewContact(tenantID, accountID uuid.UUID, createdBy *uuid.UUID, firstName, lastName string, email *string) (*Contact, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTACT_ACCOUNT", "Contact must belong to an account")
	}
	if err := validateContactName(firstName, lastName); err != nil {
		return nil, err
	}
	return &Contact{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, createdBy),
		AccountID:           accountID,
		FirstName:           firstName,
		LastName:            lastName,
		Email:               normalizeEmail(email),
	}, nil
}

// NewCounterpartContact creates the contact mirroring an individual account
func NewCounterpartContact(account *Account, createdBy *uuid.UUID) (*Contact, error) {
	first, last := SplitName(account.Name)
	return NewContact(account.TenantID, account.ID, createdBy, first, last, account.Email)
}

// FullName is first name plus, when present, a space and the last name
func (c *Contact) FullName() string {
	return JoinName(c.FirstName, c.LastName)
}

// ValidateName checks that the full name fits an account name
func (c *Contact) ValidateName() error {
	return validateContactName(c.FirstName, c.LastName)
}

func validateContactName(first, last string) error {
	if len(JoinName(first, last)) > MaxNameLength {
		return shared.NewDomainError("INVALID_CONTACT_NAME",
			fmt.Sprintf("Contact full name cannot exceed %d characters", MaxNameLength))
	}
	return nil
}

// HasExternalProfile reports whether the contact is linked to a third-party profile
func (c *Contact) HasExternalProfile() bool {
	return c.ExternalProfileRef != nil && *c.ExternalProfileRef != ""
}

// Clone returns a copy safe to mutate
func (c *Contact) Clone() *Contact {
	out := *c
	out.Email = cloneString(c.Email)
	out.ExternalProfileRef = cloneString(c.ExternalProfileRef)
	return &out
}

// Diff narrows p to the fields whose value differs from the contact
func (c *Contact) Diff(p ContactPatch) ContactPatch {
	out := ContactPatch{}
	for _, f := range p.Fields().Sorted() {
		switch f {
		case FieldFirstName:
			if p.firstName != c.FirstName {
				out.SetFirstName(p.firstName)
			}
		case FieldLastName:
			if p.lastName != c.LastName {
				out.SetLastName(p.lastName)
			}
		case FieldEmail:
			if !equalString(p.email, c.Email) {
				out.SetEmail(p.email)
			}
		case FieldExternalProfileRef:
			if !equalString(p.externalProfileRef, c.ExternalProfileRef) {
				out.SetExternalProfileRef(p.externalProfileRef)
			}
		}
	}
	return out
}

// Apply writes the patch values onto the contact
func (c *Contact) Apply(p ContactPatch) {
	for _, f := range p.Fields().Sorted() {
		switch f {
		case FieldFirstName:
			c.FirstName = p.firstName
		case FieldLastName:
			c.LastName = p.lastName
		case FieldEmail:
			c.Email = cloneString(p.email)
		case FieldExternalProfileRef:
			c.ExternalProfileRef = cloneString(p.externalProfileRef)
		}
	}
}

// ContactPatch is a field-scoped update of a contact
type ContactPatch struct {
	fields             FieldSet
	firstName          string
	lastName           string
	email              *string
	externalProfileRef *string
}

func (p *ContactPatch) mark(f Field) {
	if p.fields == nil {
		p.fields = NewFieldSet()
	}
	p.fields.Add(f)
}

func (p *ContactPatch) SetFirstName(v string) {
	p.firstName = v
	p.mark(FieldFirstName)
}

func (p *ContactPatch) SetLastName(v string) {
	p.lastName = v
	p.mark(FieldLastName)
}

// SetEmail sets the email; nil clears it
func (p *ContactPatch) SetEmail(email *string) {
	p.email = normalizeEmail(email)
	p.mark(FieldEmail)
}

func (p *ContactPatch) SetExternalProfileRef(ref *string) {
	p.externalProfileRef = cloneString(ref)
	p.mark(FieldExternalProfileRef)
}

func (p ContactPatch) Fields() FieldSet {
	if p.fields == nil {
		return NewFieldSet()
	}
	return p.fields
}

func (p ContactPatch) IsEmpty() bool {
	return len(p.fields) == 0
}

// Email returns the patched email and whether the patch carries it
func (p ContactPatch) Email() (*string, bool) {
	return p.email, p.Fields().Has(FieldEmail)
}

// Values returns the new value of every patched field, keyed by field
func (p ContactPatch) Values() (map[Field]any, error) {
	values := make(map[Field]any, len(p.fields))
	for _, f := range p.Fields().Sorted() {
		switch f {
		case FieldFirstName:
			values[f] = p.firstName
		case FieldLastName:
			values[f] = p.lastName
		case FieldEmail:
			values[f] = p.email
		case FieldExternalProfileRef:
			values[f] = p.externalProfileRef
		default:
			return nil, shared.NewDomainError("INVALID_FIELD", "Field "+string(f)+" does not belong to contact")
		}
	}
	return values, nil
}

// Validate checks the values carried by the patch
func (p ContactPatch) Validate() error {
	if len(p.firstName) > MaxNameLength || len(p.lastName) > MaxNameLength {
		return shared.NewDomainError("INVALID_CONTACT_NAME",
			fmt.Sprintf("Contact names cannot exceed %d characters", MaxNameLength))
	}
	return nil
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	v := strings.TrimSpace(*email)
	if v == "" {
		return nil
	}
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
