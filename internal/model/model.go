// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Identity is the authentication-facing account record. Secrets are never
// stored in plaintext.
type Identity struct {
	ID               uuid.UUID // PK
	Email            string    // unique, primary sign-in identifier
	Username         string    // unique, normalized
	PwdHash          []byte    // Argon2id(password, SaltAuth)
	SaltAuth         []byte    // per-identity auth salt
	EmailConfirmed   bool
	FailedLogins     int       // consecutive failed password checks
	LockedUntil      time.Time // zero when unlocked
	RefreshToken     string    // current refresh token value, "" when none
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
}

// LockedAt reports whether the identity is locked out at the given instant.
func (i *Identity) LockedAt(now time.Time) bool {
	return i.LockedUntil.After(now)
}

// RefreshValidAt reports whether the stored refresh token can still be reused.
func (i *Identity) RefreshValidAt(now time.Time) bool {
	return i.RefreshToken != "" && i.RefreshExpiresAt.After(now)
}

// TokenPair collects a freshly minted access token and the refresh token
// persisted on the identity. Never stored as a unit.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SocialPayload is the verified identity tuple returned by a social provider.
type SocialPayload struct {
	Provider   string
	ProviderID string
	Email      string
	Verified   bool
	FirstName  string
	LastName   string
	PictureURL string
}

// PermissionSet is the projection of an identity's roles and role claims.
type PermissionSet struct {
	Roles       []string
	Permissions []string
}

// AccountInfo is the account-info query result: profile snapshot plus
// authentication state and permissions.
type AccountInfo struct {
	Profile        Profile
	EmailConfirmed bool
	Permissions    PermissionSet
}
