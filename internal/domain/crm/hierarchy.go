package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/records/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultMaxHierarchyDepth bounds parent traversal. Deeper chains are
// treated as corrupted data.
const DefaultMaxHierarchyDepth = 10

// ClassificationReader loads classification groups within a tenant
type ClassificationReader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ClassificationGroup, error)
}

// HierarchyResolver walks account parent chains. Effective classification
// is computed on read and never cached.
type HierarchyResolver struct {
	accounts        AccountReader
	classifications ClassificationReader
	maxDepth        int
}

// NewHierarchyResolver creates a resolver; maxDepth <= 0 uses the default
func NewHierarchyResolver(accounts AccountReader, classifications ClassificationReader, maxDepth int) *HierarchyResolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxHierarchyDepth
	}
	return &HierarchyResolver{
		accounts:        accounts,
		classifications: classifications,
		maxDepth:        maxDepth,
	}
}

// MaxDepth returns the configured traversal bound
func (r *HierarchyResolver) MaxDepth() int {
	return r.maxDepth
}

// RootOf returns the top-most ancestor of account, or account itself when it
// has no parent. More than maxDepth parent hops yields ErrHierarchyDepthExceeded.
func (r *HierarchyResolver) RootOf(ctx context.Context, account *Account, maxDepth int) (*Account, error) {
	current := account
	for hops := 0; current.ParentID != nil; hops++ {
		if hops >= maxDepth {
			return nil, shared.WrapDomainError(ErrHierarchyDepthExceeded.Code,
				fmt.Sprintf("account %s: more than %d ancestors", account.ID, maxDepth), nil)
		}
		parent, err := r.loadParent(ctx, current)
		if err != nil {
			return nil, err
		}
		current = parent
	}
	return current, nil
}

// EffectiveClassification returns the classification of the account's root.
// A nil result means the root has no classification yet.
func (r *HierarchyResolver) EffectiveClassification(ctx context.Context, account *Account) (*uuid.UUID, error) {
	root, err := r.RootOf(ctx, account, r.maxDepth)
	if err != nil {
		return nil, err
	}
	return cloneUUID(root.ClassificationID), nil
}

// IsIndividual reports whether the account's effective classification is
// an individual group
func (r *HierarchyResolver) IsIndividual(ctx context.Context, account *Account) (bool, error) {
	classificationID, err := r.EffectiveClassification(ctx, account)
	if err != nil {
		return false, err
	}
	if classificationID == nil {
		return false, nil
	}
	group, err := r.classifications.FindByID(ctx, account.TenantID, *classificationID)
	if err != nil {
		return false, fmt.Errorf("load classification %s: %w", classificationID, err)
	}
	return group.IsIndividual(), nil
}

// ValidateStructure checks an account about to be written: it must not be
// its own parent, must not appear among its parent's ancestors, and a
// branch must carry the same classification as its parent's effective one.
func (r *HierarchyResolver) ValidateStructure(ctx context.Context, account *Account) error {
	if account.ParentID == nil {
		return nil
	}
	if *account.ParentID == account.ID {
		return ErrSelfParent
	}

	parent, err := r.loadParent(ctx, account)
	if err != nil {
		return err
	}

	current := parent
	for hops := 0; ; hops++ {
		if current.ID == account.ID {
			return ErrHierarchyCycle
		}
		if current.ParentID == nil {
			break
		}
		// the account itself sits one level below its parent's chain
		if hops+2 > r.maxDepth {
			return shared.WrapDomainError(ErrHierarchyDepthExceeded.Code,
				fmt.Sprintf("account %s: hierarchy deeper than %d", account.ID, r.maxDepth), nil)
		}
		next, err := r.loadParent(ctx, current)
		if err != nil {
			return err
		}
		current = next
	}

	// current is now the root of the parent chain
	if !equalUUID(account.ClassificationID, current.ClassificationID) {
		return ErrClassificationMismatch
	}
	return nil
}

func (r *HierarchyResolver) loadParent(ctx context.Context, child *Account) (*Account, error) {
	parent, err := r.accounts.FindByID(ctx, child.TenantID, *child.ParentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.WrapDomainError(ErrParentNotFound.Code,
				fmt.Sprintf("parent %s of account %s not found", child.ParentID, child.ID), nil)
		}
		return nil, fmt.Errorf("load parent of account %s: %w", child.ID, err)
	}
	return parent, nil
}
