package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/vkorchagin/accountd/internal/model"
)

// ProfileRepository is the profile store: CRUD for the domain-facing user
// record, keyed by the linked identity id.
type ProfileRepository interface {
	// GetByIdentityID loads the profile linked to an identity.
	GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*model.Profile, error)
	// Add inserts a new profile.
	Add(ctx context.Context, p *model.Profile) error
	// Update saves the full aggregate state.
	Update(ctx context.Context, p *model.Profile) error
	// Delete removes the profile linked to an identity.
	Delete(ctx context.Context, identityID uuid.UUID) error
}
