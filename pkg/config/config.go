package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application settings that are not owned by the database or
// logger packages (those keep their own ConfigFromEnv).
type Config struct {
	Addr           string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:9090"`
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"contactbook"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:9090"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	BulkTimeout time.Duration `env:"BULK_TIMEOUT" envDefault:"60s"`
	BulkWorkers int           `env:"BULK_WORKERS" envDefault:"1"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	// RateLimit uses the limiter formatted syntax, e.g. "20-M" (20 per minute).
	RateLimit string `env:"RATE_LIMIT" envDefault:"20-M"`
	RedisURL  string `env:"REDIS_URL"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"no-reply@contactbook.local"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.BulkWorkers < 1 {
		cfg.BulkWorkers = 1
	}
	return cfg, nil
}
