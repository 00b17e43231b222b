package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alvesdmateus/auto-deployer/internal/api"
	"github.com/alvesdmateus/auto-deployer/internal/deployer"
	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/internal/orchestrator"
)

var seedFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the auto-deploy loop and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runService(commandContext(cmd), true)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the auto-deploy loop without the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runService(commandContext(cmd), false)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{serveCmd, workerCmd} {
		cmd.Flags().StringVar(&seedFile, "seed", "", "seed targets from this YAML file before starting (default seed.targets_file)")
	}
}

// runService runs the engine, and optionally the API server, until SIGINT or
// SIGTERM. Manual triggers that arrive after the router closes get a 503.
func runService(parent context.Context, withAPI bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info().
		Str("app", "auto-deployer").
		Bool("api", withAPI).
		Bool("auto_deploy", a.cfg.AutoDeploy.Enabled).
		Msg("Starting application")

	if err := a.initTracing(parent); err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.ShutdownGlobalTracer(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down tracer")
		}
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := seedFile
	if path == "" {
		path = a.cfg.Seed.TargetsFile
	}
	if err := a.seed(ctx, path); err != nil {
		return err
	}

	if err := a.connectSecrets(false); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	tracker := deployer.NewTracker(a.repo, a.metrics, logger)
	engine := orchestrator.NewEngine(
		gctx,
		a.pollerConfig(),
		a.repo,
		a.newMetadata(),
		a.newFeed(),
		a.newExecutor(),
		tracker,
		a.metrics,
		logger,
	)

	if withAPI {
		server := api.NewServer(api.Dependencies{
			DB:             a.db,
			Targets:        a.repo,
			TaskLogs:       a.repo,
			Trigger:        engine.Client(),
			Queues:         engine.Router(),
			Metrics:        a.metrics,
			Gatherer:       a.registry,
			Tracer:         observability.GetGlobalTracer(),
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
			DeployLimit:    api.DeployRateLimitConfig(),
		})

		httpServer := &http.Server{
			Addr:         ":" + a.cfg.Server.Port,
			Handler:      server.Handler(),
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		g.Go(func() error {
			logger.Info().Str("port", a.cfg.Server.Port).Msg("Starting HTTP server")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server failed: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown failed")
			}
			return nil
		})
	}

	g.Go(func() error {
		return engine.Run(gctx)
	})

	logger.Info().Msg("Application ready")

	err = g.Wait()
	logger.Info().Msg("Application stopped")
	return err
}
