package propagation

import (
	"context"

	"github.com/erp/records/internal/domain/crm"
)

// ProfileUpdate carries the new values of the contact fields to set on an
// external profile. Keys are limited to crm.ProfileFields.
type ProfileUpdate map[crm.Field]any

// ProfileClient pushes contact fields to the third-party profile store.
// Setting the same fields twice has the same effect as setting them once.
//
// A reachable store that rejects the update returns ok=false with a detail
// message; transport failures and server errors return err.
type ProfileClient interface {
	SetProfileFields(ctx context.Context, externalRef string, fields ProfileUpdate) (ok bool, detail string, err error)
}
