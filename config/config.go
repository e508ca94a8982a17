// Package config loads the application configuration.
//
// Values are resolved in order: defaults, TOML files (later files override
// earlier ones), a .env file in the working directory, then NEUFIN_*
// environment variables. The result is validated before use.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/neufin/neufin"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	Holdings  HoldingsConfig  `toml:"holdings"`
	Display   DisplayConfig   `toml:"display"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Assistant AssistantConfig `toml:"assistant"`
}

// BackendConfig configures the Neufin backend client.
type BackendConfig struct {
	BaseURL       string `toml:"base_url" validate:"required,url"`
	Token         string `toml:"token"` // Bearer token used by the CLI
	SessionCookie string `toml:"session_cookie" validate:"required"`
	HoldingsPath  string `toml:"holdings_path" validate:"required,startswith=/"`
	Timeout       string `toml:"timeout" validate:"required,duration"` // e.g., "30s"
	RateLimit     int    `toml:"rate_limit" validate:"gt=0"`           // requests per second
}

// HoldingsConfig configures the holdings cache.
type HoldingsConfig struct {
	StaleTime string `toml:"stale_time" validate:"required,duration"` // e.g., "5m"
}

// DisplayConfig configures formatting.
type DisplayConfig struct {
	Locale string `toml:"locale" validate:"required,locale"` // BCP 47, e.g. "en-US"
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port" validate:"gte=0,lte=65535"`
	CORSOrigins    []string `toml:"cors_origins"`
	RequestTimeout string   `toml:"request_timeout" validate:"required,duration"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `toml:"pretty"`
}

// AssistantConfig configures the holdings assistant.
type AssistantConfig struct {
	Model  string `toml:"model" validate:"required"`
	APIKey string `toml:"api_key"`
}

// NewDefaultConfig returns the configuration used when nothing is set.
func NewDefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:       "http://localhost:8000",
			SessionCookie: "neufin_session",
			HoldingsPath:  "/api/plaid/holdings",
			Timeout:       "30s",
			RateLimit:     5,
		},
		Holdings: HoldingsConfig{
			StaleTime: "5m",
		},
		Display: DisplayConfig{
			Locale: neufin.DefaultLocale,
		},
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8080,
			CORSOrigins:    []string{"http://localhost:3000"},
			RequestTimeout: "60s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Assistant: AssistantConfig{
			Model: "gemini-2.5-flash",
		},
	}
}

// Load loads configuration with priority: defaults -> files -> .env -> env.
func Load(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Load .env file if it exists. Variables already set are kept.
	_ = godotenv.Load()

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies NEUFIN_* environment variables to config.
func applyEnvOverrides(config *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}

	setString("NEUFIN_BACKEND_URL", &config.Backend.BaseURL)
	setString("NEUFIN_TOKEN", &config.Backend.Token)
	setString("NEUFIN_SESSION_COOKIE", &config.Backend.SessionCookie)
	setString("NEUFIN_HOLDINGS_PATH", &config.Backend.HoldingsPath)
	setString("NEUFIN_BACKEND_TIMEOUT", &config.Backend.Timeout)
	if err := setInt("NEUFIN_RATE_LIMIT", &config.Backend.RateLimit); err != nil {
		return err
	}

	setString("NEUFIN_STALE_TIME", &config.Holdings.StaleTime)
	setString("NEUFIN_LOCALE", &config.Display.Locale)

	setString("NEUFIN_SERVER_HOST", &config.Server.Host)
	if err := setInt("NEUFIN_SERVER_PORT", &config.Server.Port); err != nil {
		return err
	}
	if origins := os.Getenv("NEUFIN_CORS_ORIGINS"); origins != "" {
		config.Server.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.Server.CORSOrigins = append(config.Server.CORSOrigins, o)
			}
		}
	}
	setString("NEUFIN_REQUEST_TIMEOUT", &config.Server.RequestTimeout)

	setString("NEUFIN_LOG_LEVEL", &config.Logging.Level)
	if pretty := os.Getenv("NEUFIN_LOG_PRETTY"); pretty != "" {
		b, err := strconv.ParseBool(pretty)
		if err != nil {
			return fmt.Errorf("invalid NEUFIN_LOG_PRETTY %q: %w", pretty, err)
		}
		config.Logging.Pretty = b
	}

	setString("NEUFIN_GEMINI_MODEL", &config.Assistant.Model)
	if key := os.Getenv("NEUFIN_GEMINI_API_KEY"); key != "" {
		config.Assistant.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Assistant.APIKey == "" {
		config.Assistant.APIKey = key
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	v.RegisterValidation("locale", func(fl validator.FieldLevel) bool {
		return neufin.ValidLocale(fl.Field().String())
	})
	return v
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// mustDuration parses a duration already checked by Validate.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// TimeoutDuration returns the backend HTTP timeout.
func (b BackendConfig) TimeoutDuration() time.Duration { return mustDuration(b.Timeout) }

// StaleDuration returns the staleness window of cached holdings.
func (h HoldingsConfig) StaleDuration() time.Duration { return mustDuration(h.StaleTime) }

// RequestTimeoutDuration returns the per-request timeout of the server.
func (s ServerConfig) RequestTimeoutDuration() time.Duration { return mustDuration(s.RequestTimeout) }

// Addr returns the listen address of the server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
