package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/backend"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	apphttp "github.com/Marcelo-Code/asistentePersonalAhorro/internal/http"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/i18n"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/metrics"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/services"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/session"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the savings dashboard",
		Long: `Serve the dashboard over HTTP until SIGINT or SIGTERM, then drain
in-flight requests and pending events.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, port string) error {
	cfg, err := LoadAndValidateConfig(opts.envFile)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}
	logger, err := SetupLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.New(true)
	tr, err := i18n.New()
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	factory, err := backend.NewFactory(cfg.LedgerBackend, logger)
	if err != nil {
		return err
	}
	lang, err := core.ParseLanguage(cfg.DefaultLanguage)
	if err != nil {
		return err
	}
	sessions := session.NewManager(factory, session.Options{
		TTL:             cfg.SessionTTL,
		MaxSessions:     cfg.MaxSessions,
		DefaultLanguage: lang,
		Gauge:           reg.ActiveSessions,
		Logger:          logger,
	})
	sessions.Start()
	defer sessions.Close()

	suggester, err := NewSuggester(ctx, cfg, logger)
	if err != nil {
		return err
	}
	expenses := services.NewExpenseService(NewPublisher(ctx, cfg, logger), reg, logger)
	defer func() {
		if err := expenses.Close(); err != nil {
			logger.Warn("Failed to close event publisher", log.FieldError, err.Error())
		}
	}()

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:           sessions,
		Expenses:           expenses,
		Strategies:         services.NewStrategyService(suggester, reg, logger),
		Translator:         tr,
		Metrics:            reg,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		StrategiesEnabled:  cfg.SuggestionsEnabled(),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ahorro server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.LedgerBackend,
			"strategies", cfg.SuggestionsEnabled(),
			"events", cfg.EventsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Server stopped gracefully")
	return err
}
