package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/vkorchagin/accountd/internal/errs"
)

// Gender values accepted on a profile.
const (
	GenderUnspecified = ""
	GenderFemale      = "female"
	GenderMale        = "male"
	GenderOther       = "other"
)

// Address is a single entry in the profile's ordered address list.
// Tagged for JSONB storage in the profile store.
type Address struct {
	Label      string `json:"label"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
	Default    bool   `json:"default,omitempty"`
}

// Profile is the domain-facing user record, one-to-one with an Identity.
// It holds the identity id as a weak back-reference and never owns the
// identity lifecycle. All mutation goes through transition methods so the
// aggregate can enforce its own invariants.
type Profile struct {
	IdentityID       uuid.UUID
	Username         string
	Email            string
	FirstName        string
	LastName         string
	Phone            string
	Gender           string
	DateOfBirth      *time.Time
	Addresses        []Address
	Preferences      map[string]string
	Wishlist         []string
	LoyaltyPoints    int64 // invariant: never negative
	MarketingConsent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewProfile constructs a profile linked to an identity.
func NewProfile(identityID uuid.UUID, username, email, firstName, lastName string) (*Profile, error) {
	if identityID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty identity id", errs.ErrValidation)
	}
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: empty username/email", errs.ErrValidation)
	}
	now := time.Now()
	return &Profile{
		IdentityID:  identityID,
		Username:    username,
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		Preferences: map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdatePersonalDetails replaces name, phone, gender and date of birth.
func (p *Profile) UpdatePersonalDetails(firstName, lastName, phone, gender string, dob *time.Time) error {
	if firstName == "" {
		return fmt.Errorf("%w: empty first name", errs.ErrValidation)
	}
	switch gender {
	case GenderUnspecified, GenderFemale, GenderMale, GenderOther:
	default:
		return fmt.Errorf("%w: unknown gender %q", errs.ErrValidation, gender)
	}
	if dob != nil && dob.After(time.Now()) {
		return fmt.Errorf("%w: date of birth in the future", errs.ErrValidation)
	}
	p.FirstName = firstName
	p.LastName = lastName
	p.Phone = phone
	p.Gender = gender
	p.DateOfBirth = dob
	p.touch()
	return nil
}

// UpdateAddresses replaces the ordered address list. At most one address
// may be marked default.
func (p *Profile) UpdateAddresses(addrs []Address) error {
	defaults := 0
	for i := range addrs {
		if addrs[i].Line1 == "" || addrs[i].City == "" || addrs[i].Country == "" {
			return fmt.Errorf("%w: address[%d] missing line1/city/country", errs.ErrValidation, i)
		}
		if addrs[i].Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%w: more than one default address", errs.ErrValidation)
	}
	p.Addresses = append([]Address(nil), addrs...)
	p.touch()
	return nil
}

// UpdatePreferences replaces the preference map.
func (p *Profile) UpdatePreferences(prefs map[string]string) {
	cp := make(map[string]string, len(prefs))
	for k, v := range prefs {
		cp[k] = v
	}
	p.Preferences = cp
	p.touch()
}

// UpdateWishlist replaces the wishlist.
func (p *Profile) UpdateWishlist(items []string) {
	p.Wishlist = append([]string(nil), items...)
	p.touch()
}

// SetMarketingConsent records the marketing opt-in decision.
func (p *Profile) SetMarketingConsent(consent bool) {
	p.MarketingConsent = consent
	p.touch()
}

// AddLoyaltyPoints adjusts the loyalty balance. The balance never goes
// negative.
func (p *Profile) AddLoyaltyPoints(delta int64) error {
	if p.LoyaltyPoints+delta < 0 {
		return fmt.Errorf("%w: loyalty balance would go negative", errs.ErrValidation)
	}
	p.LoyaltyPoints += delta
	p.touch()
	return nil
}

// SetEmail updates the profile's email mirror. Used by the email-change
// flow, which keeps Identity and Profile in sync in one logical step.
func (p *Profile) SetEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: empty email", errs.ErrValidation)
	}
	p.Email = email
	p.touch()
	return nil
}

func (p *Profile) touch() { p.UpdatedAt = time.Now() }
