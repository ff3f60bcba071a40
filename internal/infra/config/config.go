// Package config provides configuration loading from YAML files and the
// environment.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Spotify SpotifyConfig `yaml:"spotify"`
	Catalog CatalogConfig `yaml:"catalog"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080" validate:"required"`
	// InvocationTimeout bounds one conversion request end to end.
	InvocationTimeout time.Duration `yaml:"invocation_timeout" default:"60s" validate:"gt=0"`
	AllowedOrigins    []string      `yaml:"allowed_origins" default:"[\"*\"]"`
	Hooks             HooksConfig   `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2"`
	APIBaseURL   string `yaml:"api_base_url" default:"https://api.spotify.com/v1/" validate:"url"`
	TokenURL     string `yaml:"token_url" default:"https://accounts.spotify.com/api/token" validate:"url"`
}

// CatalogConfig represents catalog request and retry configuration.
type CatalogConfig struct {
	PageSize          int           `yaml:"page_size" default:"50" validate:"gte=1,lte=100"`
	RequestTimeout    time.Duration `yaml:"request_timeout" default:"5s" validate:"gt=0"`
	MaxRetries        int           `yaml:"max_retries" default:"3" validate:"gte=0,lte=10"`
	DefaultRetryAfter time.Duration `yaml:"default_retry_after" default:"1s" validate:"gt=0"`
	MaxRetryAfter     time.Duration `yaml:"max_retry_after" default:"5s" validate:"gt=0"`
	// RequestsPerSecond of 0 disables client-side smoothing.
	RequestsPerSecond float64 `yaml:"requests_per_second" default:"10" validate:"gte=0"`
	Burst             int     `yaml:"burst" default:"5" validate:"gte=1"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"console" validate:"oneof=console json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"100" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" default:"3" validate:"gte=0"`
}

// apiKey is the JSON secret form of the Spotify credentials.
type apiKey struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Load loads configuration from a YAML file. An empty path skips the file
// and configures from defaults and the environment only.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("SPOTIFY_API_KEY"); v != "" {
		var key apiKey
		// The value is never echoed; it holds the client secret.
		if err := yaml.Unmarshal([]byte(v), &key); err != nil {
			return errors.New("failed to parse SPOTIFY_API_KEY: expected {\"client_id\": ..., \"client_secret\": ...}")
		}
		if key.ClientID != "" {
			c.Spotify.ClientID = key.ClientID
		}
		if key.ClientSecret != "" {
			c.Spotify.ClientSecret = key.ClientSecret
		}
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("PLAYLOG_ADDR"); v != "" {
		c.Server.Addr = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Validate retry budget
	if err := c.validateRetryBudget(); err != nil {
		return err
	}

	return nil
}

// RetryBudget returns the longest time one page fetch may spend on its
// attempts and waits: every retry waiting the maximum, plus the initial
// attempt, one re-authentication and the retries each hitting the request
// timeout.
func (c *Config) RetryBudget() time.Duration {
	cat := c.Catalog
	waits := time.Duration(cat.MaxRetries) * cat.MaxRetryAfter
	attempts := time.Duration(cat.MaxRetries+2) * cat.RequestTimeout
	return waits + attempts
}

// validateRetryBudget checks that retries cannot outlast the invocation timeout.
func (c *Config) validateRetryBudget() error {
	if c.Catalog.DefaultRetryAfter > c.Catalog.MaxRetryAfter {
		return errors.Newf("default_retry_after (%s) must not exceed max_retry_after (%s)",
			c.Catalog.DefaultRetryAfter, c.Catalog.MaxRetryAfter)
	}

	if budget := c.RetryBudget(); budget >= c.Server.InvocationTimeout {
		return errors.Newf("catalog retry budget (%s) must be shorter than invocation_timeout (%s)",
			budget, c.Server.InvocationTimeout)
	}

	return nil
}
