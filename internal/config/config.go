package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port               string `env:"PORT" envDefault:"8081"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Sessions
	LedgerBackend   string        `env:"LEDGER_BACKEND" envDefault:"memory"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	MaxSessions     int           `env:"MAX_SESSIONS" envDefault:"1000"`
	DefaultLanguage string        `env:"DEFAULT_LANGUAGE" envDefault:"en"`

	// Gemini
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`

	// Suggestion resilience
	SuggestTimeout       time.Duration `env:"SUGGEST_TIMEOUT" envDefault:"20s"`
	SuggestMaxAttempts   int           `env:"SUGGEST_MAX_ATTEMPTS" envDefault:"3"`
	SuggestBaseBackoff   time.Duration `env:"SUGGEST_BASE_BACKOFF" envDefault:"1s"`
	SuggestMaxBackoff    time.Duration `env:"SUGGEST_MAX_BACKOFF" envDefault:"30s"`
	SuggestRatePerSecond float64       `env:"SUGGEST_RATE_PER_SECOND" envDefault:"1"`

	// AMQP, optional. Empty URL disables event publishing.
	AMQPURL        string `env:"AMQP_URL"`
	AMQPExchange   string `env:"AMQP_EXCHANGE" envDefault:"ahorro"`
	AMQPRoutingKey string `env:"AMQP_ROUTING_KEY" envDefault:"expense.added"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// SuggestionsEnabled reports whether a Gemini key is configured.
func (c *Config) SuggestionsEnabled() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

// EventsEnabled reports whether ledger events should be published.
func (c *Config) EventsEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.LedgerBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errs = append(errs, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}
	if c.DefaultLanguage != "en" && c.DefaultLanguage != "es" {
		errs = append(errs, fmt.Sprintf("invalid default language '%s': must be en or es", c.DefaultLanguage))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	if c.SuggestionsEnabled() && strings.TrimSpace(c.GeminiModel) == "" {
		errs = append(errs, "Gemini model cannot be empty when GEMINI_API_KEY is set")
	}
	if c.SuggestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid suggestion timeout %v: must be positive", c.SuggestTimeout))
	}
	if c.SuggestMaxAttempts < 1 || c.SuggestMaxAttempts > 10 {
		errs = append(errs, fmt.Sprintf("invalid suggestion attempts %d: must be between 1 and 10", c.SuggestMaxAttempts))
	}
	if c.SuggestBaseBackoff <= 0 || c.SuggestMaxBackoff < c.SuggestBaseBackoff {
		errs = append(errs, fmt.Sprintf("invalid suggestion backoff %v..%v: base must be positive and not above max", c.SuggestBaseBackoff, c.SuggestMaxBackoff))
	}
	if c.SuggestRatePerSecond <= 0 {
		errs = append(errs, fmt.Sprintf("invalid suggestion rate %v: must be positive", c.SuggestRatePerSecond))
	}

	if c.EventsEnabled() {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errs = append(errs, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}
