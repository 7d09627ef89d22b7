// Package token issues and validates access, refresh and one-time tokens.
package token

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vkorchagin/accountd/internal/crypto"
	"github.com/vkorchagin/accountd/internal/errs"
)

// One-time token purposes. A token minted for one purpose never validates
// for another.
const (
	PurposeConfirmEmail  = "confirm_email"
	PurposeResetPassword = "reset_password"
	PurposeChangeEmail   = "change_email"
)

// AccessClaims are the claims carried by access and one-time tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	NewEmail string `json:"new_email,omitempty"`
}

// Issuer is a stateless token factory. Access tokens are short-lived HS256
// JWTs; refresh tokens are opaque random values whose state lives on the
// identity row; one-time tokens are purpose-scoped HS256 JWTs.
type Issuer struct {
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	oneTimeTTL time.Duration
}

// NewIssuer constructs an Issuer with the given signing key and TTLs.
func NewIssuer(signKey []byte, accessTTL, refreshTTL, oneTimeTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	if oneTimeTTL <= 0 {
		oneTimeTTL = 24 * time.Hour
	}
	return &Issuer{signKey: signKey, accessTTL: accessTTL, refreshTTL: refreshTTL, oneTimeTTL: oneTimeTTL}
}

// CreateAccessToken mints a signed HS256 JWT for the given identity.
func (i *Issuer) CreateAccessToken(id uuid.UUID, username, email string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: username,
		Email:    email,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.signKey)
	return signed, exp, err
}

// CreateRefreshToken returns a fresh opaque refresh token value and its
// expiry. The value is persisted on the identity by the caller.
func (i *Issuer) CreateRefreshToken() (string, time.Time, error) {
	b, err := crypto.RandBytes(32)
	if err != nil {
		return "", time.Time{}, err
	}
	return base64.RawURLEncoding.EncodeToString(b), time.Now().Add(i.refreshTTL), nil
}

// ValidateAccessToken fully validates an access token: signature, expiry
// (with a small leeway) and subject shape.
func (i *Issuer) ValidateAccessToken(raw string) (uuid.UUID, *AccessClaims, error) {
	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, i.keyFunc, jwt.WithLeeway(30*time.Second))
	if err != nil || !parsed.Valid {
		return uuid.Nil, nil, fmt.Errorf("invalid token")
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("bad subject")
	}
	return id, &claims, nil
}

// ValidateExpiredToken parses an access token checking the signature but
// not the expiry. Used to re-identify a caller holding an expired access
// token during refresh.
func (i *Issuer) ValidateExpiredToken(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, i.keyFunc, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return nil, errs.ErrInvalidConfirmationToken
	}
	return &claims, nil
}

// CreateOneTimeToken mints a purpose-scoped token for the identity.
// newEmail is carried only for the email-change purpose.
func (i *Issuer) CreateOneTimeToken(id uuid.UUID, purpose, newEmail string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.oneTimeTTL)),
		},
		Purpose:  purpose,
		NewEmail: newEmail,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.signKey)
}

// ValidateOneTimeToken verifies signature, expiry, subject and purpose.
// Any mismatch surfaces as an invalid confirmation token.
func (i *Issuer) ValidateOneTimeToken(raw string, id uuid.UUID, purpose string) (*AccessClaims, error) {
	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, i.keyFunc)
	if err != nil || !parsed.Valid {
		return nil, errs.ErrInvalidConfirmationToken
	}
	if claims.Subject != id.String() || claims.Purpose != purpose {
		return nil, errs.ErrInvalidConfirmationToken
	}
	return &claims, nil
}

func (i *Issuer) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method %v", t.Method.Alg())
	}
	return i.signKey, nil
}

// EncodeTransport encodes a one-time token for URL transport.
func EncodeTransport(tok string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(tok))
}

// DecodeTransport reverses EncodeTransport. Decode failures map to the
// invalid-confirmation-token error class.
func DecodeTransport(enc string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return "", errs.ErrInvalidConfirmationToken
	}
	return string(b), nil
}
