package crm

import "github.com/erp/records/internal/domain/shared"

// Structural validation errors, raised synchronously before an account write
var (
	ErrSelfParent             = shared.NewDomainError("ACCOUNT_SELF_PARENT", "Account cannot be its own parent")
	ErrHierarchyCycle         = shared.NewDomainError("ACCOUNT_HIERARCHY_CYCLE", "Account hierarchy would contain a cycle")
	ErrClassificationMismatch = shared.NewDomainError("ACCOUNT_CLASSIFICATION_MISMATCH", "Branch account classification must match its parent's effective classification")
	ErrParentNotFound         = shared.NewDomainError("ACCOUNT_PARENT_NOT_FOUND", "Parent account not found")
)

// ErrHierarchyDepthExceeded signals corrupted hierarchy data. It is never
// truncated to a best guess.
var ErrHierarchyDepthExceeded = shared.NewDomainError("ACCOUNT_HIERARCHY_DEPTH_EXCEEDED", "Account hierarchy exceeds maximum depth")

var (
	ErrAccountNotFound        = shared.NewDomainError("NOT_FOUND", "Account not found")
	ErrContactNotFound        = shared.NewDomainError("NOT_FOUND", "Contact not found")
	ErrClassificationNotFound = shared.NewDomainError("NOT_FOUND", "Classification group not found")
	ErrTenantNotFound         = shared.NewDomainError("NOT_FOUND", "Tenant not found")
	ErrEmailTaken             = shared.NewDomainError("ALREADY_EXISTS", "Email is already used by another contact")
)

// IsStructuralError reports whether err is one of the account structure
// validation errors, including depth exceeded
func IsStructuralError(err error) bool {
	switch shared.CodeOf(err) {
	case ErrSelfParent.Code, ErrHierarchyCycle.Code, ErrClassificationMismatch.Code,
		ErrParentNotFound.Code, ErrHierarchyDepthExceeded.Code:
		return true
	default:
		return false
	}
}
