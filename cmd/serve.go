package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noteharvest/internal/api"
	clocksystem "noteharvest/internal/clock/system"
	"noteharvest/internal/config"
	"noteharvest/internal/export"
	"noteharvest/internal/extract"
	idgen "noteharvest/internal/id/uuid"
	"noteharvest/internal/logging"
	"noteharvest/internal/metrics"
	"noteharvest/internal/registry"
	"noteharvest/internal/runner"
	"noteharvest/internal/source/rednote"
	storelocal "noteharvest/internal/store/local"
)

const shutdownGrace = 10 * time.Second

// newServeCmd builds the serve command, which runs the HTTP service until
// interrupted.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the harvest HTTP service.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	store, err := storelocal.New(storelocal.Config{BaseDir: cfg.Storage.ResultsDir})
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}

	clock := clocksystem.New()
	source := rednote.New(rednote.Config{
		BaseURL:   cfg.Source.BaseURL,
		Timeout:   cfg.SourceTimeout(),
		UserAgent: cfg.Source.UserAgent,
	})
	reg := registry.New(idgen.NewGenerator(), clock)
	extractor := extract.New(source, logger)
	run := runner.New(source, extractor, store, clock, runner.Config{ItemDelay: cfg.ItemDelay()}, logger)
	formatter := export.New(clock)

	// Interrupt cancels both in-flight requests and background tasks.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(ctx, reg, run, store, formatter, source, cfg, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
