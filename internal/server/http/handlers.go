package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/vkorchagin/accountd/internal/model"
	"github.com/vkorchagin/accountd/internal/service"
)

const dateLayout = "2006-01-02"

type registerRequest struct {
	Email            string            `json:"email" binding:"required"`
	Password         string            `json:"password" binding:"required"`
	FirstName        string            `json:"first_name" binding:"required"`
	LastName         string            `json:"last_name"`
	Phone            string            `json:"phone"`
	Gender           string            `json:"gender"`
	DateOfBirth      string            `json:"date_of_birth"`
	Addresses        []model.Address   `json:"addresses"`
	Preferences      map[string]string `json:"preferences"`
	Wishlist         []string          `json:"wishlist"`
	MarketingConsent bool              `json:"marketing_consent"`
}

type loginRequest struct {
	Credential string `json:"credential" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type tokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type profileResponse struct {
	IdentityID       string            `json:"identity_id"`
	Username         string            `json:"username"`
	Email            string            `json:"email"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	Gender           string            `json:"gender,omitempty"`
	DateOfBirth      string            `json:"date_of_birth,omitempty"`
	Addresses        []model.Address   `json:"addresses,omitempty"`
	Preferences      map[string]string `json:"preferences,omitempty"`
	Wishlist         []string          `json:"wishlist,omitempty"`
	LoyaltyPoints    int64             `json:"loyalty_points"`
	MarketingConsent bool              `json:"marketing_consent"`
}

func toTokenPairResponse(tp model.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:      tp.AccessToken,
		AccessExpiresAt:  tp.AccessExpiresAt,
		RefreshToken:     tp.RefreshToken,
		RefreshExpiresAt: tp.RefreshExpiresAt,
	}
}

func toProfileResponse(p *model.Profile) profileResponse {
	resp := profileResponse{
		IdentityID:       p.IdentityID.String(),
		Username:         p.Username,
		Email:            p.Email,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Phone:            p.Phone,
		Gender:           p.Gender,
		Addresses:        p.Addresses,
		Preferences:      p.Preferences,
		Wishlist:         p.Wishlist,
		LoyaltyPoints:    p.LoyaltyPoints,
		MarketingConsent: p.MarketingConsent,
	}
	if p.DateOfBirth != nil {
		resp.DateOfBirth = p.DateOfBirth.Format(dateLayout)
	}
	return resp
}

func parseDate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	dob, ok := parseDate(req.DateOfBirth)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": "bad date_of_birth"})
		return
	}
	p, err := s.accounts.Register(c.Request.Context(), service.RegistrationInput{
		Email:            req.Email,
		Password:         req.Password,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Gender:           req.Gender,
		DateOfBirth:      dob,
		Addresses:        req.Addresses,
		Preferences:      req.Preferences,
		Wishlist:         req.Wishlist,
		MarketingConsent: req.MarketingConsent,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProfileResponse(p))
}

func (s *Server) handleAuthenticate(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	tp, err := s.accounts.Authenticate(c.Request.Context(), req.Credential, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenPairResponse(tp))
}

func (s *Server) handleRefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	tp, err := s.accounts.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenPairResponse(tp))
}

func (s *Server) handleSocialLogin(c *gin.Context) {
	var req struct {
		Provider string `json:"provider" binding:"required"`
		Token    string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	tp, err := s.accounts.SocialLogin(c.Request.Context(), req.Provider, req.Token)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenPairResponse(tp))
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	if err := s.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	if err := s.accounts.ResetPassword(c.Request.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleConfirmEmail(c *gin.Context) {
	var req struct {
		ID           string `json:"id" binding:"required"`
		Token        string `json:"token" binding:"required"`
		ChangedEmail string `json:"changed_email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	id, err := uuid.FromString(req.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": "bad id"})
		return
	}
	if err := s.accounts.ConfirmEmail(c.Request.Context(), id, req.Token, req.ChangedEmail); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResendConfirmation(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	if err := s.accounts.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUpdateCredential(c *gin.Context) {
	id, ok := identityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
		return
	}
	var req struct {
		NewEmail    string `json:"new_email"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	res, err := s.accounts.UpdateCredential(c.Request.Context(), id, service.CredentialUpdate{
		NewEmail:    req.NewEmail,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"password_changed":        res.PasswordChanged,
		"confirmation_email_sent": res.ConfirmationEmailSent,
	})
}

func (s *Server) handleDeleteAccount(c *gin.Context) {
	id, ok := identityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
		return
	}
	if err := s.accounts.DeleteAccount(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetAccountInfo(c *gin.Context) {
	id, ok := identityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
		return
	}
	info, err := s.accounts.GetAccountInfo(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":         toProfileResponse(&info.Profile),
		"email_confirmed": info.EmailConfirmed,
		"roles":           info.Permissions.Roles,
		"permissions":     info.Permissions.Permissions,
	})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	id, ok := identityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
		return
	}
	p, err := s.accounts.GetProfile(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(p))
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	id, ok := identityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
		return
	}
	var req struct {
		FirstName        string             `json:"first_name"`
		LastName         string             `json:"last_name"`
		Phone            string             `json:"phone"`
		Gender           string             `json:"gender"`
		DateOfBirth      string             `json:"date_of_birth"`
		Addresses        *[]model.Address   `json:"addresses"`
		Preferences      *map[string]string `json:"preferences"`
		Wishlist         *[]string          `json:"wishlist"`
		MarketingConsent *bool              `json:"marketing_consent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	dob, ok := parseDate(req.DateOfBirth)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": "bad date_of_birth"})
		return
	}
	p, err := s.accounts.UpdateProfile(c.Request.Context(), id, service.ProfileUpdate{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Gender:           req.Gender,
		DateOfBirth:      dob,
		Addresses:        req.Addresses,
		Preferences:      req.Preferences,
		Wishlist:         req.Wishlist,
		MarketingConsent: req.MarketingConsent,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(p))
}
