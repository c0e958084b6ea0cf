package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	AppPort  string `env:"APP_PORT"  envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	TokenSecret string        `env:"TOKEN_SECRET,required,notEmpty"`
	TokenIssuer string        `env:"TOKEN_ISSUER" envDefault:"federated-auth"`
	TokenTTL    time.Duration `env:"TOKEN_TTL"    envDefault:"1h"`

	SessionTTL   time.Duration `env:"SESSION_TTL"   envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`

	IdentityStore string `env:"IDENTITY_STORE" envDefault:"memory"`
	SessionStore  string `env:"SESSION_STORE"  envDefault:"memory"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URL"`
	GitHubAPIBaseURL   string `env:"GITHUB_API_BASE_URL"`

	KeycloakIssuer        string `env:"KEYCLOAK_ISSUER"`
	KeycloakClientID      string `env:"KEYCLOAK_CLIENT_ID"`
	KeycloakRedirectURL   string `env:"KEYCLOAK_REDIRECT_URL"`
	KeycloakPublicBaseURL string `env:"KEYCLOAK_PUBLIC_BASE_URL"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings each selected backend depends on.
func (c Config) Validate() error {
	var errs []error

	if c.TokenTTL <= 0 || c.TokenTTL%time.Second != 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be a positive whole number of seconds"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	switch c.IdentityStore {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres identity store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_STORE %q", c.IdentityStore))
	}

	switch c.SessionStore {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != ""
}

func (c Config) KeycloakEnabled() bool {
	return c.KeycloakIssuer != ""
}
