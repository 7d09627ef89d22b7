package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/vkorchagin/accountd/internal/errs"
)

// RoleRepo implements RoleRepository using PostgreSQL.
type RoleRepo struct{ db *DB }

// NewRoleRepo constructs a role repository.
func NewRoleRepo(db *DB) *RoleRepo { return &RoleRepo{db: db} }

// Exists reports whether a role with the given name is defined.
func (r *RoleRepo) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	const q = `SELECT EXISTS (SELECT 1 FROM roles WHERE name=$1)`
	if err := r.db.Pool.QueryRow(ctx, q, name).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// AddToRole links an identity to a role.
func (r *RoleRepo) AddToRole(ctx context.Context, identityID uuid.UUID, role string) error {
	const q = `INSERT INTO identity_roles (identity_id, role_name) VALUES ($1, $2)`
	_, err := r.db.Pool.Exec(ctx, q, identityID, role)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// RolesOf lists the role names assigned to an identity.
func (r *RoleRepo) RolesOf(ctx context.Context, identityID uuid.UUID) ([]string, error) {
	const q = `SELECT role_name FROM identity_roles WHERE identity_id=$1 ORDER BY role_name`
	rows, err := r.db.Pool.Query(ctx, q, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// PermissionsOf lists the distinct permission claims of the given roles.
func (r *RoleRepo) PermissionsOf(ctx context.Context, roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	const q = `SELECT DISTINCT permission FROM role_claims WHERE role_name = ANY($1) ORDER BY permission`
	rows, err := r.db.Pool.Query(ctx, q, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// RemoveFromRoles unlinks the identity from all roles.
func (r *RoleRepo) RemoveFromRoles(ctx context.Context, identityID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM identity_roles WHERE identity_id=$1`, identityID)
	return err
}
