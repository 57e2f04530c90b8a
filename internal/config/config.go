package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrMissingAPIURL is reported when the upstream base URL is not set.
var ErrMissingAPIURL = errors.New("required environment variable API_URL is not set")

type Config struct {
	// Server
	Port string `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"development"`

	// Upstream. APIURL stays on the server; PublicAPIURL may be shown to browsers.
	APIURL          string        `envconfig:"API_URL"`
	PublicAPIURL    string        `envconfig:"PUBLIC_API_URL"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"20s"`

	// CORS
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// TrustProxy honours X-Forwarded-For / X-Real-IP. Enable only behind a
	// proxy that overwrites those headers, otherwise clients pick their own
	// rate limit key.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`

	// Rate limiting
	RateLimitRPS     float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst   int     `envconfig:"RATE_LIMIT_BURST" default:"10"`
	RateLimitEnabled bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`

	// Redis, optional. Shares rate limit counters between instances.
	RedisURL string `envconfig:"REDIS_URL"`

	// Debug routes are mounted only when a secret is set.
	AdminJWTSecret string `envconfig:"ADMIN_JWT_SECRET"`

	// Terminal client target.
	RelayURL string `envconfig:"RELAY_URL" default:"http://localhost:8080"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogDev   bool   `envconfig:"LOG_DEV" default:"false"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.PublicAPIURL = strings.TrimRight(strings.TrimSpace(cfg.PublicAPIURL), "/")
	cfg.RelayURL = strings.TrimRight(strings.TrimSpace(cfg.RelayURL), "/")
	cfg.AllowedOrigins = cleanOrigins(cfg.AllowedOrigins)

	return &cfg, nil
}

// Validate reports settings the relay cannot serve chat without.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return ErrMissingAPIURL
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func cleanOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
