package crm

import (
	"strings"

	"github.com/erp/records/internal/domain/shared"
	"github.com/google/uuid"
)

// ClassificationKind is the category of a classification group
type ClassificationKind string

const (
	ClassificationBusiness   ClassificationKind = "business"
	ClassificationIndividual ClassificationKind = "individual"
	ClassificationGovernment ClassificationKind = "government"
)

// IsValid reports whether k is a known kind
func (k ClassificationKind) IsValid() bool {
	switch k {
	case ClassificationBusiness, ClassificationIndividual, ClassificationGovernment:
		return true
	}
	return false
}

// ClassificationGroup categorises accounts. Only individual groups get
// person-style synchronization between an account and its contact.
type ClassificationGroup struct {
	shared.TenantAggregateRoot
	Name string
	Kind ClassificationKind
}

// NewClassificationGroup creates a classification group
func NewClassificationGroup(tenantID uuid.UUID, name string, kind ClassificationKind) (*ClassificationGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CLASSIFICATION_NAME", "Classification name cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_CLASSIFICATION_KIND", "Unknown classification kind: "+string(kind))
	}
	return &ClassificationGroup{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, nil),
		Name:                name,
		Kind:                kind,
	}, nil
}

// IsIndividual reports whether the group triggers person-style sync
func (g *ClassificationGroup) IsIndividual() bool {
	return g.Kind == ClassificationIndividual
}
