// Package httpserver exposes the account service over a thin HTTP facade.
package httpserver

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vkorchagin/accountd/internal/service"
	"github.com/vkorchagin/accountd/internal/token"
)

// Server wires the account service into HTTP handlers.
type Server struct {
	accounts service.AccountService
	tokens   *token.Issuer
	log      *zap.Logger
}

// New constructs the HTTP server facade.
func New(accounts service.AccountService, tokens *token.Issuer, log *zap.Logger) *Server {
	return &Server{accounts: accounts, tokens: tokens, log: log}
}

// Router builds the gin engine with middleware and all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(Recovery(s.log), RequestLogger(s.log))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/register", s.handleRegister)
		v1.POST("/auth/login", s.handleAuthenticate)
		v1.POST("/auth/refresh", s.handleRefreshToken)
		v1.POST("/auth/social", s.handleSocialLogin)
		v1.POST("/auth/forgot-password", s.handleForgotPassword)
		v1.POST("/auth/reset-password", s.handleResetPassword)
		v1.POST("/auth/confirm-email", s.handleConfirmEmail)
		v1.POST("/auth/resend-confirmation", s.handleResendConfirmation)

		authed := v1.Group("", BearerAuth(s.tokens))
		{
			authed.GET("/account", s.handleGetAccountInfo)
			authed.PUT("/account/credentials", s.handleUpdateCredential)
			authed.DELETE("/account", s.handleDeleteAccount)
			authed.GET("/account/profile", s.handleGetProfile)
			authed.PUT("/account/profile", s.handleUpdateProfile)
		}
	}
	return r
}
