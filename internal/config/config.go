// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration.
type Config struct {
	Port          string        `env:"PORT" envDefault:"8080"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	CORSOrigins   []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	DB     DB     `envPrefix:"DB_"`
	Auth   Auth   `envPrefix:"AUTH_"`
	AMQP   AMQP   `envPrefix:"AMQP_"`
	Policy Policy `envPrefix:"POLICY_"`
}

// DB holds storage settings. The field names follow the DB_* variables the
// service has always read.
type DB struct {
	Driver     string `env:"DRIVER" envDefault:"postgres"`
	Host       string `env:"HOST" envDefault:"localhost"`
	Port       string `env:"PORT" envDefault:"5432"`
	User       string `env:"USER" envDefault:"postgres"`
	Password   string `env:"PASSWORD" envDefault:"postgres"`
	Name       string `env:"NAME" envDefault:"campusevents"`
	SSLMode    string `env:"SSLMODE" envDefault:"disable"`
	MaxConns   int32  `env:"MAX_CONNS" envDefault:"20"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"campus-events.db"`
}

// DSN builds a libpq-compatible connection string.
func (c DB) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Auth configures bearer token issuance.
type Auth struct {
	Secret   string        `env:"SECRET"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	Issuer   string        `env:"ISSUER" envDefault:"campus-events"`

	// AdminEmails are granted the admin role when they sign up.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`
}

// AMQP configures the notification broker. An empty URL disables publishing.
type AMQP struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"campus-events"`
}

// Policy holds admission rules that the deployment chooses.
type Policy struct {
	// WaitlistDefault applies to events created without an explicit choice.
	WaitlistDefault          bool `env:"WAITLIST_DEFAULT" envDefault:"false"`
	AllowCreatorRegistration bool `env:"ALLOW_CREATOR_REGISTRATION" envDefault:"false"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.DB.Driver)
	}
	if len(c.Auth.Secret) < 16 {
		return fmt.Errorf("AUTH_SECRET must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	return nil
}
