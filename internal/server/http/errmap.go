package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vkorchagin/accountd/internal/errs"
)

// sentinel → (status, stable error code) mapping. Unmapped errors become a
// generic 500 so infrastructure faults never leak details to callers.
var errTable = []struct {
	err    error
	status int
	code   string
}{
	{errs.ErrNotFound, http.StatusNotFound, "not_found"},
	{errs.ErrAlreadyExists, http.StatusConflict, "already_exists"},
	{errs.ErrValidation, http.StatusBadRequest, "validation"},
	{errs.ErrPasswordSame, http.StatusBadRequest, "password_same"},
	{errs.ErrEmailSame, http.StatusBadRequest, "email_same"},
	{errs.ErrSocialProviderUnknown, http.StatusBadRequest, "unknown_provider"},
	{errs.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{errs.ErrAccountLocked, http.StatusUnauthorized, "account_locked"},
	{errs.ErrEmailNotConfirmed, http.StatusUnauthorized, "email_not_confirmed"},
	{errs.ErrSignInNotAllowed, http.StatusUnauthorized, "sign_in_not_allowed"},
	{errs.ErrRefreshTokenInvalid, http.StatusUnauthorized, "refresh_token_invalid"},
	{errs.ErrRefreshTokenExpired, http.StatusUnauthorized, "refresh_token_expired"},
	{errs.ErrInvalidConfirmationToken, http.StatusUnauthorized, "invalid_confirmation_token"},
	{errs.ErrSocialTokenInvalid, http.StatusUnauthorized, "social_token_invalid"},
}

func (s *Server) fail(c *gin.Context, err error) {
	for _, e := range errTable {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": e.code, "detail": err.Error()})
			return
		}
	}
	s.log.Error("unhandled service error",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
}
