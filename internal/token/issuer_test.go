package token

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/vkorchagin/accountd/internal/errs"
)

func newTestIssuer(t *testing.T) (*Issuer, uuid.UUID) {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return NewIssuer([]byte("test-key"), time.Minute, time.Hour, time.Hour), id
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer, id := newTestIssuer(t)

	raw, exp, err := issuer.CreateAccessToken(id, "janedoe", "jane@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	gotID, claims, err := issuer.ValidateAccessToken(raw)
	require.NoError(t, err)
	require.Equal(t, id, gotID)
	require.Equal(t, "janedoe", claims.Username)
	require.Equal(t, "jane@example.com", claims.Email)
	require.Empty(t, claims.Purpose)
}

func TestAccessTokenWrongKey(t *testing.T) {
	issuer, id := newTestIssuer(t)
	other := NewIssuer([]byte("other-key"), time.Minute, time.Hour, time.Hour)

	raw, _, err := issuer.CreateAccessToken(id, "janedoe", "jane@example.com")
	require.NoError(t, err)

	_, _, err = other.ValidateAccessToken(raw)
	require.Error(t, err)
}

func TestAccessTokenGarbage(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	_, _, err := issuer.ValidateAccessToken("not.a.jwt")
	require.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	issuer, id := newTestIssuer(t)
	expired := NewIssuer([]byte("test-key"), -time.Minute, time.Hour, time.Hour)
	// NewIssuer clamps non-positive TTLs, so mint with a negative offset directly
	expired.accessTTL = -time.Minute

	raw, _, err := expired.CreateAccessToken(id, "janedoe", "jane@example.com")
	require.NoError(t, err)

	_, _, err = issuer.ValidateAccessToken(raw)
	require.Error(t, err, "regular validation rejects an expired token")

	claims, err := issuer.ValidateExpiredToken(raw)
	require.NoError(t, err)
	require.Equal(t, id.String(), claims.Subject)
}

func TestRefreshTokenValues(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	a, expA, err := issuer.CreateRefreshToken()
	require.NoError(t, err)
	b, _, err := issuer.CreateRefreshToken()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.WithinDuration(t, time.Now().Add(time.Hour), expA, 5*time.Second)
}

func TestOneTimeTokenPurposeScoping(t *testing.T) {
	issuer, id := newTestIssuer(t)

	raw, err := issuer.CreateOneTimeToken(id, PurposeResetPassword, "")
	require.NoError(t, err)

	claims, err := issuer.ValidateOneTimeToken(raw, id, PurposeResetPassword)
	require.NoError(t, err)
	require.Equal(t, PurposeResetPassword, claims.Purpose)

	_, err = issuer.ValidateOneTimeToken(raw, id, PurposeConfirmEmail)
	require.ErrorIs(t, err, errs.ErrInvalidConfirmationToken)

	other, err := uuid.NewV4()
	require.NoError(t, err)
	_, err = issuer.ValidateOneTimeToken(raw, other, PurposeResetPassword)
	require.ErrorIs(t, err, errs.ErrInvalidConfirmationToken)
}

func TestOneTimeTokenCarriesNewEmail(t *testing.T) {
	issuer, id := newTestIssuer(t)

	raw, err := issuer.CreateOneTimeToken(id, PurposeChangeEmail, "jane.new@example.com")
	require.NoError(t, err)

	claims, err := issuer.ValidateOneTimeToken(raw, id, PurposeChangeEmail)
	require.NoError(t, err)
	require.Equal(t, "jane.new@example.com", claims.NewEmail)
}

func TestTransportEncoding(t *testing.T) {
	issuer, id := newTestIssuer(t)

	raw, err := issuer.CreateOneTimeToken(id, PurposeConfirmEmail, "")
	require.NoError(t, err)

	enc := EncodeTransport(raw)
	dec, err := DecodeTransport(enc)
	require.NoError(t, err)
	require.Equal(t, raw, dec)

	_, err = DecodeTransport("%%%")
	require.ErrorIs(t, err, errs.ErrInvalidConfirmationToken)
}
