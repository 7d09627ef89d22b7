package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/vkorchagin/accountd/internal/errs"
	"github.com/vkorchagin/accountd/internal/model"
)

// GetProfile returns the profile linked to an identity.
func (s *AccountServiceImpl) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return s.profiles.GetByIdentityID(ctx, id)
}

// GetAccountInfo returns the profile snapshot with confirmation state and
// the permission set projected from the identity's roles.
func (s *AccountServiceImpl) GetAccountInfo(ctx context.Context, id uuid.UUID) (*model.AccountInfo, error) {
	ident, err := s.idents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.GetByIdentityID(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.roles.RolesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.roles.PermissionsOf(ctx, roles)
	if err != nil {
		return nil, err
	}
	return &model.AccountInfo{
		Profile:        *p,
		EmailConfirmed: ident.EmailConfirmed,
		Permissions:    model.PermissionSet{Roles: roles, Permissions: perms},
	}, nil
}

// UpdateProfile applies a partial update through the aggregate's
// transition methods and saves the result.
func (s *AccountServiceImpl) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*model.Profile, error) {
	p, err := s.profiles.GetByIdentityID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != "" {
		if err := p.UpdatePersonalDetails(upd.FirstName, upd.LastName, upd.Phone, upd.Gender, upd.DateOfBirth); err != nil {
			return nil, err
		}
	}
	if upd.Addresses != nil {
		if err := p.UpdateAddresses(*upd.Addresses); err != nil {
			return nil, err
		}
	}
	if upd.Preferences != nil {
		p.UpdatePreferences(*upd.Preferences)
	}
	if upd.Wishlist != nil {
		p.UpdateWishlist(*upd.Wishlist)
	}
	if upd.MarketingConsent != nil {
		p.SetMarketingConsent(*upd.MarketingConsent)
	}
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteAccount removes role links, the profile and the identity. A
// missing profile does not block identity removal.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if _, err := s.idents.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.roles.RemoveFromRoles(ctx, id); err != nil {
		return err
	}
	if err := s.profiles.Delete(ctx, id); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if err := s.idents.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("account deleted", zap.String("identity_id", id.String()))
	return nil
}
