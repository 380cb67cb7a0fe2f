// Package config loads and validates process configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config is the full configuration of the auth service process.
type Config struct {
	App    AppConfig    `envPrefix:"APP_"`
	Server ServerConfig `envPrefix:"SERVER_"`
	Mongo  MongoConfig  `envPrefix:"MONGO_"`
	Redis  RedisConfig  `envPrefix:"REDIS_"`
	Token  TokenConfig  `envPrefix:"TOKEN_"`
	Google GoogleConfig `envPrefix:"GOOGLE_"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"Plateful"`
	Environment string `env:"ENV" envDefault:"development"`

	// BaseURL is the public web app origin that email links point at.
	BaseURL string `env:"BASE_URL"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string `env:"URI"`
	Database string `env:"DATABASE" envDefault:"plateful_auth"`
}

// RedisConfig holds Redis connection settings for rate limiting.
type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// TokenConfig holds JWT signing material and validity windows. The access
// and refresh secrets must differ.
type TokenConfig struct {
	AccessSecret       string        `env:"ACCESS_SECRET"`
	RefreshSecret      string        `env:"REFRESH_SECRET"`
	AccessExpiresIn    time.Duration `env:"ACCESS_EXPIRES_IN" envDefault:"15m"`
	RefreshExpiresIn   time.Duration `env:"REFRESH_EXPIRES_IN" envDefault:"168h"`
	TwoFactorExpiresIn time.Duration `env:"TWO_FACTOR_EXPIRES_IN" envDefault:"5m"`
	Issuer             string        `env:"ISSUER" envDefault:"plateful"`
}

// GoogleConfig holds the OAuth client ID used to verify Google ID tokens.
type GoogleConfig struct {
	ClientID string `env:"CLIENT_ID"`
}

// Load parses configuration from environment variables and validates it.
func Load(logger *zerolog.Logger) *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate configuration")
	}

	return &cfg
}

// validate checks that required settings are present and consistent.
func (c *Config) validate() error {
	if c.App.BaseURL == "" {
		return fmt.Errorf("missing APP_BASE_URL environment variable")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("missing MONGO_URI environment variable")
	}
	if c.Token.AccessSecret == "" {
		return fmt.Errorf("missing TOKEN_ACCESS_SECRET environment variable")
	}
	if c.Token.RefreshSecret == "" {
		return fmt.Errorf("missing TOKEN_REFRESH_SECRET environment variable")
	}
	if c.Token.AccessSecret == c.Token.RefreshSecret {
		return fmt.Errorf("TOKEN_ACCESS_SECRET and TOKEN_REFRESH_SECRET must differ")
	}

	return nil
}
