// Package service contains the account lifecycle orchestrator: the one
// component that sequences calls across the credential store, profile
// store, token issuer, notification gateway and social verifiers, and
// applies compensation when a later step fails.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/vkorchagin/accountd/internal/crypto"
	"github.com/vkorchagin/accountd/internal/errs"
	"github.com/vkorchagin/accountd/internal/model"
	"github.com/vkorchagin/accountd/internal/notify"
	"github.com/vkorchagin/accountd/internal/repository"
	"github.com/vkorchagin/accountd/internal/token"
)

// DefaultRole is assigned to every newly registered identity. It must be
// seeded before registration can succeed.
const DefaultRole = "user"

const minPasswordLen = 7

// SocialVerifier dispatches provider-token verification. Implemented by
// social.Registry.
type SocialVerifier interface {
	Verify(ctx context.Context, provider, rawToken string) (*model.SocialPayload, error)
}

// RegistrationInput is the caller-supplied registration request.
type RegistrationInput struct {
	Email            string
	Password         string
	FirstName        string
	LastName         string
	Phone            string
	Gender           string
	DateOfBirth      *time.Time
	Addresses        []model.Address
	Preferences      map[string]string
	Wishlist         []string
	MarketingConsent bool
}

// CredentialUpdate carries the combined (each independently optional)
// email and password change request.
type CredentialUpdate struct {
	NewEmail    string
	OldPassword string
	NewPassword string
}

// CredentialUpdateResult distinguishes an immediate success from an email
// change that is pending confirmation.
type CredentialUpdateResult struct {
	PasswordChanged       bool
	ConfirmationEmailSent bool
}

// ProfileUpdate carries a partial profile update. Nil sections are left
// unchanged; personal details apply when FirstName is set.
type ProfileUpdate struct {
	FirstName        string
	LastName         string
	Phone            string
	Gender           string
	DateOfBirth      *time.Time
	Addresses        *[]model.Address
	Preferences      *map[string]string
	Wishlist         *[]string
	MarketingConsent *bool
}

// AccountService defines the account lifecycle operations exposed to
// callers. Every operation returns typed errors; nothing panics across
// this boundary.
type AccountService interface {
	// Authenticate verifies a credential (email or username) and password
	// and issues a token pair.
	Authenticate(ctx context.Context, credential, password string) (model.TokenPair, error)
	// Register runs the registration saga and returns the created profile.
	Register(ctx context.Context, in RegistrationInput) (*model.Profile, error)
	// RefreshToken exchanges a refresh token value for a token pair.
	RefreshToken(ctx context.Context, refreshToken string) (model.TokenPair, error)
	// ForgotPassword sends a reset link. Always succeeds for unknown or
	// unconfirmed emails so account existence is not disclosed.
	ForgotPassword(ctx context.Context, email string) error
	// ResetPassword applies a new password using a transport-encoded
	// reset token.
	ResetPassword(ctx context.Context, email, transportToken, newPassword string) error
	// ConfirmEmail applies an initial confirmation token, or an
	// email-change token when changedEmail is set.
	ConfirmEmail(ctx context.Context, id uuid.UUID, transportToken, changedEmail string) error
	// ResendConfirmation re-sends the confirmation email. Non-disclosing
	// like ForgotPassword.
	ResendConfirmation(ctx context.Context, email string) error
	// SocialLogin authenticates via a social provider, creating the
	// account just-in-time when needed.
	SocialLogin(ctx context.Context, provider, providerToken string) (model.TokenPair, error)
	// UpdateCredential applies a combined email/password change,
	// accumulating validation errors from both.
	UpdateCredential(ctx context.Context, id uuid.UUID, upd CredentialUpdate) (CredentialUpdateResult, error)
	// DeleteAccount removes roles, profile and identity.
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	// GetAccountInfo returns the profile snapshot with confirmation state
	// and permissions.
	GetAccountInfo(ctx context.Context, id uuid.UUID) (*model.AccountInfo, error)
	// GetProfile returns the profile linked to an identity.
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	// UpdateProfile applies a partial profile update through the
	// aggregate's transition methods.
	UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*model.Profile, error)
}

// AccountServiceImpl orchestrates the external stores. It holds no mutable
// state of its own, so one instance is safely shared across requests.
type AccountServiceImpl struct {
	idents    repository.IdentityRepository
	profiles  repository.ProfileRepository
	roles     repository.RoleRepository
	tokens    *token.Issuer
	gateway   notify.Gateway
	social    SocialVerifier
	publicURL string
	log       *zap.Logger
}

// NewAccountService constructs the orchestrator with its collaborators.
// publicURL is the externally reachable base for confirmation/reset links.
func NewAccountService(
	idents repository.IdentityRepository,
	profiles repository.ProfileRepository,
	roles repository.RoleRepository,
	tokens *token.Issuer,
	gateway notify.Gateway,
	social SocialVerifier,
	publicURL string,
	log *zap.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		idents:    idents,
		profiles:  profiles,
		roles:     roles,
		tokens:    tokens,
		gateway:   gateway,
		social:    social,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// Register runs the registration saga with a confirmation email at the end.
func (s *AccountServiceImpl) Register(ctx context.Context, in RegistrationInput) (*model.Profile, error) {
	return s.register(ctx, in, registerOptions{sendConfirmation: true})
}

type registerOptions struct {
	emailConfirmed   bool
	sendConfirmation bool
}

// register is the saga shared by Register and SocialLogin. Steps run in
// order; each completed persistent step pushes its undo. After a failure
// no partial state survives (best-effort: a crash mid-saga is not
// recoverable by this design).
func (s *AccountServiceImpl) register(ctx context.Context, in RegistrationInput, opts registerOptions) (*model.Profile, error) {
	// Step 1: validation, no side effects yet.
	if in.Email == "" {
		return nil, fmt.Errorf("%w: empty email", errs.ErrValidation)
	}
	if in.FirstName == "" {
		return nil, fmt.Errorf("%w: empty first name", errs.ErrValidation)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	taken, err := s.idents.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errs.ErrAlreadyExists
	}
	roleOK, err := s.roles.Exists(ctx, DefaultRole)
	if err != nil {
		return nil, err
	}
	if !roleOK {
		return nil, fmt.Errorf("%w: default role %q not defined", errs.ErrInternal, DefaultRole)
	}

	// Step 2: unique username.
	username, err := generateUsername(ctx, s.idents.UsernameExists, in.FirstName+in.LastName)
	if err != nil {
		return nil, err
	}

	// Step 3: identity.
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	salt, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return nil, err
	}
	ident := &model.Identity{
		ID:             uid,
		Email:          in.Email,
		Username:       username,
		PwdHash:        pkgcrypto.HashPassword([]byte(in.Password), salt),
		SaltAuth:       salt,
		EmailConfirmed: opts.emailConfirmed,
	}
	if err := s.idents.Create(ctx, ident); err != nil {
		return nil, err
	}
	sg := newSaga(s.log)
	sg.push("delete identity", func(ctx context.Context) error {
		return s.idents.Delete(ctx, uid)
	})

	// Step 4: default role. Role links are removed with the identity.
	if err := s.roles.AddToRole(ctx, uid, DefaultRole); err != nil {
		sg.compensate(ctx)
		return nil, err
	}

	// Step 5: profile.
	p, err := s.buildProfile(uid, username, in)
	if err != nil {
		sg.compensate(ctx)
		return nil, err
	}
	if err := s.profiles.Add(ctx, p); err != nil {
		sg.compensate(ctx)
		return nil, err
	}
	sg.push("delete profile", func(ctx context.Context) error {
		return s.profiles.Delete(ctx, uid)
	})

	// Step 6: confirmation email.
	if opts.sendConfirmation {
		if err := s.sendConfirmation(ctx, ident, p.FirstName); err != nil {
			sg.compensate(ctx)
			return nil, fmt.Errorf("%w: send confirmation: %v", errs.ErrInternal, err)
		}
	}
	return p, nil
}

func (s *AccountServiceImpl) buildProfile(id uuid.UUID, username string, in RegistrationInput) (*model.Profile, error) {
	p, err := model.NewProfile(id, username, in.Email, in.FirstName, in.LastName)
	if err != nil {
		return nil, err
	}
	if err := p.UpdatePersonalDetails(in.FirstName, in.LastName, in.Phone, in.Gender, in.DateOfBirth); err != nil {
		return nil, err
	}
	if len(in.Addresses) > 0 {
		if err := p.UpdateAddresses(in.Addresses); err != nil {
			return nil, err
		}
	}
	if len(in.Preferences) > 0 {
		p.UpdatePreferences(in.Preferences)
	}
	if len(in.Wishlist) > 0 {
		p.UpdateWishlist(in.Wishlist)
	}
	p.SetMarketingConsent(in.MarketingConsent)
	return p, nil
}

// Authenticate resolves the identity by email, then username, and verifies
// the password with lockout tracking. Unknown identifier and wrong
// password are indistinguishable to the caller.
func (s *AccountServiceImpl) Authenticate(ctx context.Context, credential, password string) (model.TokenPair, error) {
	ident, err := s.resolveCredential(ctx, credential)
	if err != nil {
		return model.TokenPair{}, err
	}
	if !ident.EmailConfirmed {
		return model.TokenPair{}, errs.ErrEmailNotConfirmed
	}
	v, err := s.verifyPassword(ctx, ident, password)
	if err != nil {
		return model.TokenPair{}, err
	}
	switch {
	case v.lockedOut:
		return model.TokenPair{}, errs.ErrAccountLocked
	case v.notAllowed:
		return model.TokenPair{}, errs.ErrSignInNotAllowed
	case !v.succeeded:
		return model.TokenPair{}, errs.ErrInvalidCredentials
	}
	return s.issueTokenPair(ctx, ident)
}

func (s *AccountServiceImpl) resolveCredential(ctx context.Context, credential string) (*model.Identity, error) {
	ident, err := s.idents.GetByEmail(ctx, credential)
	if errors.Is(err, errs.ErrNotFound) {
		ident, err = s.idents.GetByUsername(ctx, credential)
	}
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// which lookup failed is never revealed
			return nil, errs.ErrInvalidCredentials
		}
		return nil, err
	}
	return ident, nil
}

// verdict is the credential store's view of a password check. The
// orchestrator only interprets it; lockout state lives on the identity.
type verdict struct {
	succeeded  bool
	lockedOut  bool
	notAllowed bool
}

func (s *AccountServiceImpl) verifyPassword(ctx context.Context, ident *model.Identity, password string) (verdict, error) {
	if ident.LockedAt(time.Now()) {
		return verdict{lockedOut: true}, nil
	}
	if pkgcrypto.VerifyPassword([]byte(password), ident.SaltAuth, ident.PwdHash) {
		if err := s.idents.ResetLoginFailures(ctx, ident.ID); err != nil {
			return verdict{}, err
		}
		return verdict{succeeded: true}, nil
	}
	locked, err := s.idents.RecordLoginFailure(ctx, ident.ID)
	if err != nil {
		return verdict{}, err
	}
	return verdict{lockedOut: locked}, nil
}

// issueTokenPair mints a fresh access token and reuses the stored refresh
// token unless it is absent or expired, in which case a new value is
// generated and persisted. Reuse avoids refresh storms on rapid re-login.
func (s *AccountServiceImpl) issueTokenPair(ctx context.Context, ident *model.Identity) (model.TokenPair, error) {
	access, accessExp, err := s.tokens.CreateAccessToken(ident.ID, ident.Username, ident.Email)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, refreshExp := ident.RefreshToken, ident.RefreshExpiresAt
	if !ident.RefreshValidAt(time.Now()) {
		refresh, refreshExp, err = s.tokens.CreateRefreshToken()
		if err != nil {
			return model.TokenPair{}, err
		}
		if err := s.idents.SetRefreshToken(ctx, ident.ID, refresh, refreshExp); err != nil {
			return model.TokenPair{}, err
		}
	}
	return model.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// RefreshToken exchanges a refresh token value for a new token pair,
// rotating the stored value only when it has expired.
func (s *AccountServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	if refreshToken == "" {
		return model.TokenPair{}, errs.ErrRefreshTokenInvalid
	}
	ident, err := s.idents.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.TokenPair{}, errs.ErrRefreshTokenInvalid
		}
		return model.TokenPair{}, err
	}
	if !ident.RefreshValidAt(time.Now()) {
		return model.TokenPair{}, errs.ErrRefreshTokenExpired
	}
	return s.issueTokenPair(ctx, ident)
}

// SocialLogin verifies the provider token, authenticates an existing
// identity for the verified email, or creates one just-in-time via the
// registration saga.
func (s *AccountServiceImpl) SocialLogin(ctx context.Context, provider, providerToken string) (model.TokenPair, error) {
	payload, err := s.social.Verify(ctx, provider, providerToken)
	if err != nil {
		return model.TokenPair{}, err
	}

	ident, err := s.idents.GetByEmail(ctx, payload.Email)
	switch {
	case err == nil:
		// existing account, password irrelevant on this path
		return s.issueTokenPair(ctx, ident)
	case !errors.Is(err, errs.ErrNotFound):
		return model.TokenPair{}, err
	}

	password, err := pkgcrypto.RandomPassword()
	if err != nil {
		return model.TokenPair{}, err
	}
	first, last := socialNames(payload)
	in := RegistrationInput{
		Email:     payload.Email,
		Password:  password,
		FirstName: first,
		LastName:  last,
	}
	if _, err := s.register(ctx, in, registerOptions{
		emailConfirmed:   payload.Verified,
		sendConfirmation: !payload.Verified,
	}); err != nil {
		return model.TokenPair{}, err
	}

	ident, err = s.idents.GetByEmail(ctx, payload.Email)
	if err != nil {
		return model.TokenPair{}, err
	}
	return s.issueTokenPair(ctx, ident)
}

// socialNames falls back to the email local part when the provider did not
// supply a name, so the profile aggregate's first-name requirement holds.
func socialNames(p *model.SocialPayload) (first, last string) {
	first, last = p.FirstName, p.LastName
	if first == "" {
		local, _, _ := strings.Cut(p.Email, "@")
		first = local
	}
	if first == "" {
		first = usernameFallback
	}
	return first, last
}

func (s *AccountServiceImpl) sendConfirmation(ctx context.Context, ident *model.Identity, firstName string) error {
	oneTime, err := s.tokens.CreateOneTimeToken(ident.ID, token.PurposeConfirmEmail, "")
	if err != nil {
		return err
	}
	link := s.deepLink("/account/confirm-email", ident.ID, token.EncodeTransport(oneTime), "")
	return s.gateway.Send(ctx, notify.UseCaseAccountConfirmation, []string{ident.Email}, map[string]string{
		notify.ParamActivationURL: link,
		notify.ParamFirstName:     firstName,
	})
}

func (s *AccountServiceImpl) deepLink(path string, id uuid.UUID, transportToken, changedEmail string) string {
	q := url.Values{}
	q.Set("id", id.String())
	q.Set("token", transportToken)
	if changedEmail != "" {
		q.Set("email", changedEmail)
	}
	return s.publicURL + path + "?" + q.Encode()
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password shorter than %d characters", errs.ErrValidation, minPasswordLen)
	}
	return nil
}
