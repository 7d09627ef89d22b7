// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed or rejected input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials indicates an unknown identifier or wrong password.
	// The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked indicates a temporary lockout after repeated failures.
	ErrAccountLocked = errors.New("account locked")

	// ErrEmailNotConfirmed indicates sign-in before email confirmation.
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	// ErrSignInNotAllowed indicates the store policy forbids sign-in.
	ErrSignInNotAllowed = errors.New("sign-in not allowed")

	// ErrRefreshTokenInvalid indicates an unknown refresh token value.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")

	// ErrRefreshTokenExpired indicates a known but expired refresh token.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrInvalidConfirmationToken indicates a one-time token that failed to
	// decode or verify (confirmation, reset, email change).
	ErrInvalidConfirmationToken = errors.New("invalid confirmation token")

	// ErrPasswordSame rejects a password change where old == new.
	ErrPasswordSame = errors.New("new password equals old password")

	// ErrEmailSame rejects an email change to the current address.
	ErrEmailSame = errors.New("new email equals current email")

	// ErrSocialProviderUnknown indicates an unregistered social provider.
	ErrSocialProviderUnknown = errors.New("unknown social provider")

	// ErrSocialTokenInvalid indicates a provider token that failed verification.
	ErrSocialTokenInvalid = errors.New("social token invalid")

	// ErrInternal masks unexpected infrastructure faults at the boundary.
	ErrInternal = errors.New("internal error")
)
