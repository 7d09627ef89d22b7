// Package keycloak verifies ID tokens issued by a Keycloak realm.
package keycloak

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/vkorchagin/accountd/internal/errs"
	"github.com/vkorchagin/accountd/internal/model"
)

const providerName = "keycloak"

// Verifier validates ID tokens against a Keycloak realm issuer.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// New initializes the verifier using OIDC discovery. issuer must be the
// realm issuer URL, e.g. https://sso.example.com/realms/shop.
func New(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("keycloak oidc config missing issuer/client id")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("init keycloak oidc provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Name returns the provider identifier used by the registry.
func (v *Verifier) Name() string { return providerName }

// Verify checks the raw ID token and maps its claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*model.SocialPayload, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSocialTokenInvalid, err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: claims parse: %v", errs.ErrSocialTokenInvalid, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing required claims", errs.ErrSocialTokenInvalid)
	}

	return &model.SocialPayload{
		Provider:   providerName,
		ProviderID: claims.Subject,
		Email:      claims.Email,
		Verified:   claims.EmailVerified,
		FirstName:  claims.GivenName,
		LastName:   claims.FamilyName,
		PictureURL: claims.Picture,
	}, nil
}
