package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvDev  = "dev"
	EnvTest = "test"
	EnvProd = "prod"
)

// placeholder used outside prod when JWT_SECRET is unset. Never valid in prod.
const devJWTSecret = "authhub-dev-only-insecure-secret"

const minProdSecretLen = 32

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required when APP_ENV=prod")
	ErrWeakJWTSecret    = errors.New("JWT_SECRET must be at least 32 bytes when APP_ENV=prod")
	ErrUnknownEnv       = errors.New("APP_ENV must be one of dev, test, prod")
)

// Config is built once at startup and passed by value to whoever needs it.
type Config struct {
	Env           string `env:"APP_ENV" envDefault:"dev"`
	Port          int    `env:"PORT" envDefault:"8080"`
	DBURL         string `env:"DATABASE_URL"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"5"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`

	JWTSecret string `env:"JWT_SECRET"`
	// set by Load when JWTSecret fell back to the dev placeholder
	JWTSecretIsPlaceholder bool

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	StaticDir          string   `env:"STATIC_DIR" envDefault:"static"`
	TemplatesDir       string   `env:"TEMPLATES_DIR" envDefault:"templates"`

	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"authhub"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	SeedUser SeedUser `envPrefix:"SEED_USER_"`
}

// SeedUser describes an optional user inserted at startup for local development.
type SeedUser struct {
	Email    string `env:"EMAIL"`
	UserID   string `env:"ID"`
	Name     string `env:"NAME" envDefault:"Dev User"`
	Password string `env:"PASSWORD"`
}

func (s SeedUser) Enabled() bool {
	return s.Email != "" && s.Password != ""
}

type dbParts struct {
	Host     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"authhub"`
	Password string `env:"DB_PASSWORD" envDefault:"authhub"`
	Name     string `env:"DB_NAME" envDefault:"authhub"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

func (p dbParts) url() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.Name,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

// Load reads an optional .env file, then the process environment.
// Variables already present in the environment win over .env entries.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBURL == "" {
		var parts dbParts
		if err := env.Parse(&parts); err != nil {
			return Config{}, fmt.Errorf("parse db env: %w", err)
		}
		cfg.DBURL = parts.url()
	}

	switch cfg.Env {
	case EnvDev, EnvTest, EnvProd:
	default:
		return Config{}, fmt.Errorf("%w: got %q", ErrUnknownEnv, cfg.Env)
	}

	if err := cfg.resolveSecret(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) resolveSecret() error {
	if c.IsProd() {
		switch {
		case c.JWTSecret == "":
			return ErrMissingJWTSecret
		case c.JWTSecret == devJWTSecret || len(c.JWTSecret) < minProdSecretLen:
			return ErrWeakJWTSecret
		}
		return nil
	}

	if c.JWTSecret == "" {
		c.JWTSecret = devJWTSecret
		c.JWTSecretIsPlaceholder = true
	}
	return nil
}

func (c Config) IsProd() bool {
	return c.Env == EnvProd
}

// ExposeErrors reports whether internal error detail may be echoed to clients.
func (c Config) ExposeErrors() bool {
	return !c.IsProd()
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
