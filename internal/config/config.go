// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	DatabaseDSN string `env:"DATABASE_DSN,required"`
	PublicURL   string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	JWTKey     string        `env:"JWT_KEY,required"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
	OneTimeTTL time.Duration `env:"ONE_TIME_TTL" envDefault:"24h"`

	LockoutMaxFails int           `env:"LOCKOUT_MAX_FAILS" envDefault:"5"`
	LockoutFor      time.Duration `env:"LOCKOUT_FOR" envDefault:"15m"`

	NotifyURL string `env:"NOTIFY_URL,required"`

	GoogleClientID   string `env:"GOOGLE_CLIENT_ID"`
	KeycloakIssuer   string `env:"KEYCLOAK_ISSUER"`
	KeycloakClientID string `env:"KEYCLOAK_CLIENT_ID"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
