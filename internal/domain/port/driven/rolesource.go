package driven

import (
	"context"

	"github.com/mjoubert/viproster/internal/domain/model"
)

// RoleSource defines the driven port for the external tier-role membership
// surface. Any call may fail with ErrNotFound (holder unknown or already
// gone) or ErrPermissionDenied; callers must treat both as non-fatal.
type RoleSource interface {
	// HasRole reports whether the holder currently carries the VIP role.
	HasRole(ctx context.Context, holderID string) (bool, error)

	// AddRole grants the VIP role to the holder.
	AddRole(ctx context.Context, holderID string) error

	// RemoveRole revokes the VIP role from the holder.
	RemoveRole(ctx context.Context, holderID string) error

	// ListHolders returns every current holder of the VIP role with the
	// display name used for roster ordering.
	ListHolders(ctx context.Context) ([]model.Holder, error)
}
