// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"3000"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`

	JWTSecret   string        `env:"JWT_SECRET"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"168h"`

	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	FilesDir      string `env:"FILES_DIR" envDefault:"./var/files"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"2097152"`

	AuthLockAttempts int           `env:"AUTH_LOCK_ATTEMPTS" envDefault:"5"`
	AuthLockDuration time.Duration `env:"AUTH_LOCK_DURATION" envDefault:"15m"`

	AllowRegistration bool `env:"ALLOW_REGISTRATION" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	TracingEnabled bool `env:"TRACING_ENABLED" envDefault:"false"`

	CriticalCheckInterval time.Duration `env:"CRITICAL_CHECK_INTERVAL" envDefault:"15m"`
	FilePurgeInterval     time.Duration `env:"FILE_PURGE_INTERVAL" envDefault:"24h"`
	FileRetention         time.Duration `env:"FILE_RETENTION" envDefault:"720h"`
}

// Load reads an optional .env file and then parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds the configuration from environment variables only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	if len(c.AllowedOrigins) == 0 {
		return errors.New("ALLOWED_ORIGINS must list at least one origin")
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE must be positive")
	}
	if c.AuthLockAttempts < 0 {
		return errors.New("AUTH_LOCK_ATTEMPTS must not be negative")
	}
	return nil
}
