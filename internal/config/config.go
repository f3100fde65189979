package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	APIURL          string        `env:"TRIAGE_API_URL" envDefault:"http://localhost:8000"`
	APITimeout      time.Duration `env:"TRIAGE_API_TIMEOUT" envDefault:"2m"` // LLM-backed calls are slow
	RateLimit       float64       `env:"TRIAGE_RATE_LIMIT" envDefault:"0"`   // requests/sec, 0 = unlimited
	RateBurst       int           `env:"TRIAGE_RATE_BURST" envDefault:"1"`
	APICallHistory  int           `env:"TRIAGE_API_CALL_HISTORY" envDefault:"100"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFile         string        `env:"LOG_FILE"`
	Port            string        `env:"PORT" envDefault:"8080"`
	GinMode         string        `env:"GIN_MODE"`
	CORSOrigin      string        `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid TRIAGE_API_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid TRIAGE_API_URL %q: must be an http(s) URL", c.APIURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("TRIAGE_API_TIMEOUT must be positive, got %s", c.APITimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("TRIAGE_RATE_LIMIT must not be negative, got %v", c.RateLimit)
	}
	return nil
}
