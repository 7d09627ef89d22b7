package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/vkorchagin/accountd/internal/crypto"
	"github.com/vkorchagin/accountd/internal/errs"
	"github.com/vkorchagin/accountd/internal/model"
	"github.com/vkorchagin/accountd/internal/notify"
	"github.com/vkorchagin/accountd/internal/token"
)

// ForgotPassword sends a password reset link. Unknown or unconfirmed
// emails return success without any send, so the caller cannot probe for
// account existence.
func (s *AccountServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	ident, err := s.idents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	if !ident.EmailConfirmed {
		return nil
	}

	oneTime, err := s.tokens.CreateOneTimeToken(ident.ID, token.PurposeResetPassword, "")
	if err != nil {
		return err
	}
	link := s.deepLink("/account/reset-password", ident.ID, token.EncodeTransport(oneTime), "")
	params := map[string]string{notify.ParamResetURL: link}
	if p, perr := s.profiles.GetByIdentityID(ctx, ident.ID); perr == nil {
		params[notify.ParamFirstName] = p.FirstName
	}
	if err := s.gateway.Send(ctx, notify.UseCasePasswordReset, []string{ident.Email}, params); err != nil {
		return fmt.Errorf("%w: send reset notification: %v", errs.ErrInternal, err)
	}
	return nil
}

// ResetPassword applies a new password using a transport-encoded reset
// token.
func (s *AccountServiceImpl) ResetPassword(ctx context.Context, email, transportToken, newPassword string) error {
	ident, err := s.idents.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	raw, err := token.DecodeTransport(transportToken)
	if err != nil {
		return err
	}
	if _, err := s.tokens.ValidateOneTimeToken(raw, ident.ID, token.PurposeResetPassword); err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := s.setPassword(ctx, ident.ID, newPassword); err != nil {
		return err
	}
	// a successful reset also clears any lockout
	return s.idents.ResetLoginFailures(ctx, ident.ID)
}

// ConfirmEmail applies an initial confirmation token, or an email-change
// token when changedEmail is set. On an email change the identity and the
// linked profile are updated in the same logical step.
func (s *AccountServiceImpl) ConfirmEmail(ctx context.Context, id uuid.UUID, transportToken, changedEmail string) error {
	ident, err := s.idents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	raw, err := token.DecodeTransport(transportToken)
	if err != nil {
		return err
	}

	if changedEmail == "" {
		if _, err := s.tokens.ValidateOneTimeToken(raw, id, token.PurposeConfirmEmail); err != nil {
			return err
		}
		return s.idents.SetEmailConfirmed(ctx, id, true)
	}

	claims, err := s.tokens.ValidateOneTimeToken(raw, id, token.PurposeChangeEmail)
	if err != nil {
		return err
	}
	if claims.NewEmail != changedEmail {
		return errs.ErrInvalidConfirmationToken
	}
	if err := s.idents.SetEmailUsername(ctx, id, changedEmail, ident.Username); err != nil {
		return err
	}
	p, err := s.profiles.GetByIdentityID(ctx, id)
	if err != nil {
		// identity updated without its profile mirror: surface loudly,
		// this is the consistency bug the operation exists to prevent
		s.log.Error("email change applied to identity but profile missing",
			zap.String("identity_id", id.String()))
		return err
	}
	if err := p.SetEmail(changedEmail); err != nil {
		return err
	}
	if err := s.profiles.Update(ctx, p); err != nil {
		s.log.Error("email change applied to identity but not profile",
			zap.String("identity_id", id.String()), zap.Error(err))
		return err
	}
	return s.idents.SetEmailConfirmed(ctx, id, true)
}

// ResendConfirmation re-sends the account confirmation email. Unknown and
// already-confirmed emails return success without any send.
func (s *AccountServiceImpl) ResendConfirmation(ctx context.Context, email string) error {
	ident, err := s.idents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	if ident.EmailConfirmed {
		return nil
	}
	firstName := ""
	if p, perr := s.profiles.GetByIdentityID(ctx, ident.ID); perr == nil {
		firstName = p.FirstName
	}
	if err := s.sendConfirmation(ctx, ident, firstName); err != nil {
		return fmt.Errorf("%w: send confirmation: %v", errs.ErrInternal, err)
	}
	return nil
}

// UpdateCredential applies a combined email/password change. Both
// sub-requests are validated before anything is applied and their
// validation errors are accumulated, so a caller attempting both changes
// learns about both problems at once. An accepted email change sends a
// confirmation to the new address instead of switching immediately.
func (s *AccountServiceImpl) UpdateCredential(ctx context.Context, id uuid.UUID, upd CredentialUpdate) (CredentialUpdateResult, error) {
	var res CredentialUpdateResult

	ident, err := s.idents.GetByID(ctx, id)
	if err != nil {
		return res, err
	}

	var verrs []error
	changeEmail := upd.NewEmail != ""
	changePassword := upd.NewPassword != ""

	if changeEmail {
		switch {
		case upd.NewEmail == ident.Email:
			verrs = append(verrs, errs.ErrEmailSame)
		default:
			taken, err := s.idents.EmailExists(ctx, upd.NewEmail)
			if err != nil {
				return res, err
			}
			if taken {
				verrs = append(verrs, errs.ErrAlreadyExists)
			}
		}
	}
	if changePassword {
		switch {
		case upd.OldPassword == "":
			verrs = append(verrs, fmt.Errorf("%w: old password required", errs.ErrValidation))
		case upd.OldPassword == upd.NewPassword:
			verrs = append(verrs, errs.ErrPasswordSame)
		case !pkgcrypto.VerifyPassword([]byte(upd.OldPassword), ident.SaltAuth, ident.PwdHash):
			verrs = append(verrs, errs.ErrInvalidCredentials)
		default:
			if err := validatePassword(upd.NewPassword); err != nil {
				verrs = append(verrs, err)
			}
		}
	}
	if len(verrs) > 0 {
		return res, errors.Join(verrs...)
	}

	if changePassword {
		if err := s.setPassword(ctx, id, upd.NewPassword); err != nil {
			return res, err
		}
		res.PasswordChanged = true
	}
	if changeEmail {
		if err := s.sendEmailChange(ctx, ident, upd.NewEmail); err != nil {
			return res, fmt.Errorf("%w: send email change: %v", errs.ErrInternal, err)
		}
		res.ConfirmationEmailSent = true
	}
	return res, nil
}

// sendEmailChange mails a change-email token, scoped to the new address,
// to that new address.
func (s *AccountServiceImpl) sendEmailChange(ctx context.Context, ident *model.Identity, newEmail string) error {
	oneTime, err := s.tokens.CreateOneTimeToken(ident.ID, token.PurposeChangeEmail, newEmail)
	if err != nil {
		return err
	}
	link := s.deepLink("/account/confirm-email", ident.ID, token.EncodeTransport(oneTime), newEmail)
	return s.gateway.Send(ctx, notify.UseCaseEmailChange, []string{newEmail}, map[string]string{
		notify.ParamActivationURL: link,
	})
}

func (s *AccountServiceImpl) setPassword(ctx context.Context, id uuid.UUID, password string) error {
	salt, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return err
	}
	return s.idents.SetPassword(ctx, id, pkgcrypto.HashPassword([]byte(password), salt), salt)
}
