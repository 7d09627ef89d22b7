package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/vkorchagin/accountd/internal/errs"
	"github.com/vkorchagin/accountd/internal/model"
)

const profileColumns = `identity_id, username, email, first_name, last_name, phone, gender,
date_of_birth, addresses, preferences, wishlist, loyalty_points, marketing_consent,
created_at, updated_at`

// ProfileRepo implements ProfileRepository using PostgreSQL. List-shaped
// attributes (addresses, preferences, wishlist) are stored as JSONB.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

// GetByIdentityID selects the profile linked to an identity.
func (r *ProfileRepo) GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*model.Profile, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE identity_id=$1`, identityID)

	var (
		p                model.Profile
		dob              *time.Time
		addrs, prefs, wl []byte
	)
	if err := row.Scan(&p.IdentityID, &p.Username, &p.Email, &p.FirstName, &p.LastName,
		&p.Phone, &p.Gender, &dob, &addrs, &prefs, &wl,
		&p.LoyaltyPoints, &p.MarketingConsent, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	p.DateOfBirth = dob
	if err := unmarshalInto(addrs, &p.Addresses); err != nil {
		return nil, fmt.Errorf("decode addresses: %w", err)
	}
	if err := unmarshalInto(prefs, &p.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	if err := unmarshalInto(wl, &p.Wishlist); err != nil {
		return nil, fmt.Errorf("decode wishlist: %w", err)
	}
	return &p, nil
}

// Add inserts a new profile row.
func (r *ProfileRepo) Add(ctx context.Context, p *model.Profile) error {
	addrs, prefs, wl, err := marshalLists(p)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO profiles (identity_id, username, email, first_name, last_name, phone, gender,
date_of_birth, addresses, preferences, wishlist, loyalty_points, marketing_consent,
created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.db.Pool.Exec(ctx, q,
		p.IdentityID, p.Username, p.Email, p.FirstName, p.LastName, p.Phone, p.Gender,
		p.DateOfBirth, addrs, prefs, wl, p.LoyaltyPoints, p.MarketingConsent,
		p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Update saves the full aggregate state.
func (r *ProfileRepo) Update(ctx context.Context, p *model.Profile) error {
	addrs, prefs, wl, err := marshalLists(p)
	if err != nil {
		return err
	}
	const q = `
UPDATE profiles SET username=$2, email=$3, first_name=$4, last_name=$5, phone=$6, gender=$7,
date_of_birth=$8, addresses=$9, preferences=$10, wishlist=$11, loyalty_points=$12,
marketing_consent=$13, updated_at=$14
WHERE identity_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q,
		p.IdentityID, p.Username, p.Email, p.FirstName, p.LastName, p.Phone, p.Gender,
		p.DateOfBirth, addrs, prefs, wl, p.LoyaltyPoints, p.MarketingConsent, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the profile linked to an identity.
func (r *ProfileRepo) Delete(ctx context.Context, identityID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM profiles WHERE identity_id=$1`, identityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func marshalLists(p *model.Profile) (addrs, prefs, wl []byte, err error) {
	if addrs, err = json.Marshal(p.Addresses); err != nil {
		return nil, nil, nil, fmt.Errorf("encode addresses: %w", err)
	}
	if prefs, err = json.Marshal(p.Preferences); err != nil {
		return nil, nil, nil, fmt.Errorf("encode preferences: %w", err)
	}
	if wl, err = json.Marshal(p.Wishlist); err != nil {
		return nil, nil, nil, fmt.Errorf("encode wishlist: %w", err)
	}
	return addrs, prefs, wl, nil
}

func unmarshalInto(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
