// Package cli wires configuration, logging and the long-lived components
// behind the ahorro commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/config"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/events"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/retry"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/suggest"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/suggest/gemini"
)

// LoadAndValidateConfig loads .env (if present) and the environment, then
// validates the result.
func LoadAndValidateConfig(envFile string) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from configuration and installs it
// as the slog default.
func SetupLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	lc := log.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.LogFormat
	lc.Output = os.Stderr
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger, nil
}

// NewSuggester returns the Gemini client behind the resilience wrapper, or
// suggest.Disabled when no API key is configured.
func NewSuggester(ctx context.Context, cfg *config.Config, logger *log.Logger) (suggest.Suggester, error) {
	if !cfg.SuggestionsEnabled() {
		logger.Info("Savings strategies disabled: GEMINI_API_KEY not set")
		return suggest.Disabled{}, nil
	}

	client, err := gemini.New(ctx, gemini.Config{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}

	return suggest.NewResilient(client, suggest.Options{
		Timeout: cfg.SuggestTimeout,
		Retry: retry.Policy{
			MaxAttempts: cfg.SuggestMaxAttempts,
			BaseDelay:   cfg.SuggestBaseBackoff,
			MaxDelay:    cfg.SuggestMaxBackoff,
		},
		RatePerSecond: cfg.SuggestRatePerSecond,
		Logger:        logger,
	}), nil
}

// NewPublisher connects to AMQP when configured. A broker that is down at
// startup only disables events; the dashboard still starts.
func NewPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) events.Publisher {
	if !cfg.EventsEnabled() {
		return events.Noop{}
	}
	pub, err := events.NewAMQPPublisher(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
	if err != nil {
		logger.WithComponent(log.ComponentEvents).Warn("Event publishing disabled: AMQP unavailable",
			log.FieldError, err.Error())
		return events.Noop{}
	}
	return pub
}
