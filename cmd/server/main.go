// Command accountd starts the account lifecycle HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vkorchagin/accountd/internal/config"
	"github.com/vkorchagin/accountd/internal/migrate"
	"github.com/vkorchagin/accountd/internal/notify"
	"github.com/vkorchagin/accountd/internal/repository/postgres"
	httpserver "github.com/vkorchagin/accountd/internal/server/http"
	"github.com/vkorchagin/accountd/internal/service"
	"github.com/vkorchagin/accountd/internal/social"
	"github.com/vkorchagin/accountd/internal/social/google"
	"github.com/vkorchagin/accountd/internal/social/keycloak"
	"github.com/vkorchagin/accountd/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and starts the HTTP server.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	identRepo := postgres.NewIdentityRepo(db, cfg.LockoutMaxFails, cfg.LockoutFor)
	profileRepo := postgres.NewProfileRepo(db)
	roleRepo := postgres.NewRoleRepo(db)

	issuer := token.NewIssuer([]byte(cfg.JWTKey), cfg.AccessTTL, cfg.RefreshTTL, cfg.OneTimeTTL)
	gateway := notify.NewHTTPGateway(cfg.NotifyURL, logger)

	// Social providers (closed set, configured ones only)
	var verifiers []social.Verifier
	if cfg.GoogleClientID != "" {
		g, err := google.New(ctx, cfg.GoogleClientID)
		if err != nil {
			logger.Fatal("google verifier", zap.Error(err))
		}
		verifiers = append(verifiers, g)
	}
	if cfg.KeycloakIssuer != "" {
		k, err := keycloak.New(ctx, cfg.KeycloakIssuer, cfg.KeycloakClientID)
		if err != nil {
			logger.Fatal("keycloak verifier", zap.Error(err))
		}
		verifiers = append(verifiers, k)
	}
	registry := social.NewRegistry(verifiers...)

	accounts := service.NewAccountService(
		identRepo, profileRepo, roleRepo,
		issuer, gateway, registry,
		cfg.PublicURL, logger,
	)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpserver.New(accounts, issuer, logger).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
