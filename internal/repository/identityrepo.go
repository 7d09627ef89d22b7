// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/vkorchagin/accountd/internal/model"
)

// IdentityRepository is the credential store: it owns authentication
// secrets, lockout counters, confirmation state and the refresh token per
// identity.
type IdentityRepository interface {
	// Create inserts a new identity.
	Create(ctx context.Context, ident *model.Identity) error
	// GetByID loads an identity by id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Identity, error)
	// GetByEmail loads an identity by primary email.
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	// GetByUsername loads an identity by normalized username.
	GetByUsername(ctx context.Context, username string) (*model.Identity, error)
	// GetByRefreshToken loads an identity by its current refresh token value.
	GetByRefreshToken(ctx context.Context, token string) (*model.Identity, error)
	// EmailExists reports whether an identity with the email exists.
	EmailExists(ctx context.Context, email string) (bool, error)
	// UsernameExists reports whether an identity with the username exists.
	UsernameExists(ctx context.Context, username string) (bool, error)
	// Delete removes the identity row. Used by registration compensation
	// and account deletion.
	Delete(ctx context.Context, id uuid.UUID) error

	// RecordLoginFailure increments the failure counter and reports whether
	// the identity is now locked. Lockout state lives on the row.
	RecordLoginFailure(ctx context.Context, id uuid.UUID) (locked bool, err error)
	// ResetLoginFailures clears the counter and any lock after success.
	ResetLoginFailures(ctx context.Context, id uuid.UUID) error

	// SetPassword replaces the password hash and salt.
	SetPassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error
	// SetEmailUsername updates both sign-in identifiers in one statement.
	SetEmailUsername(ctx context.Context, id uuid.UUID, email, username string) error
	// SetEmailConfirmed flips the confirmation flag.
	SetEmailConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error
	// SetRefreshToken persists a rotated refresh token value and expiry.
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
}
