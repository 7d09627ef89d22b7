package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// RoleRepository manages role membership and role claims.
type RoleRepository interface {
	// Exists reports whether a role with the given name is defined.
	Exists(ctx context.Context, name string) (bool, error)
	// AddToRole links an identity to a role.
	AddToRole(ctx context.Context, identityID uuid.UUID, role string) error
	// RolesOf lists the role names assigned to an identity.
	RolesOf(ctx context.Context, identityID uuid.UUID) ([]string, error)
	// PermissionsOf lists the distinct permission claims of the given roles.
	PermissionsOf(ctx context.Context, roles []string) ([]string, error)
	// RemoveFromRoles unlinks the identity from all roles.
	RemoveFromRoles(ctx context.Context, identityID uuid.UUID) error
}
