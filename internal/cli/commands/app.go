package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/alvesdmateus/auto-deployer/internal/deployer"
	"github.com/alvesdmateus/auto-deployer/internal/feed"
	"github.com/alvesdmateus/auto-deployer/internal/metadata"
	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/internal/orchestrator"
	"github.com/alvesdmateus/auto-deployer/internal/secrets"
	"github.com/alvesdmateus/auto-deployer/internal/state"
	"github.com/alvesdmateus/auto-deployer/pkg/config"
	"github.com/alvesdmateus/auto-deployer/pkg/database"
)

// app holds the components shared by the commands
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	repo     *state.Repository
	secrets  *secrets.RedisStore
	metrics  *observability.Metrics
	registry *prometheus.Registry
	logger   zerolog.Logger
}

// newApp loads configuration, opens target storage and migrates it
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.New(databaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := state.AutoMigrate(db); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{
		cfg:      cfg,
		db:       db,
		repo:     state.NewRepository(db),
		metrics:  observability.NewMetrics(cfg.Metrics.Namespace, registry),
		registry: registry,
		logger:   log.Logger,
	}, nil
}

func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		SQLitePath:      cfg.Database.SQLitePath,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
}

// connectSecrets opens the redis secret store. With required unset a
// connection failure is logged and deployments run without stored credentials.
func (a *app) connectSecrets(required bool) error {
	if a.cfg.Redis.URL == "" {
		if required {
			return fmt.Errorf("redis.url is not configured")
		}
		a.logger.Info().Msg("Secret store disabled, publish settings must come from targets")
		return nil
	}

	store, err := secrets.NewRedisStore(a.cfg.Redis.URL, a.cfg.Redis.Password, a.cfg.Redis.DB, a.cfg.Redis.KeyPrefix)
	if err != nil {
		if required {
			return err
		}
		a.logger.Warn().
			Err(err).
			Str("redis_url", a.cfg.Redis.URL).
			Msg("Secret store unavailable, continuing without it")
		return nil
	}

	a.secrets = store
	return nil
}

// secretStore returns the store as the executor sees it. A missing store is a
// nil interface, not a typed nil.
func (a *app) secretStore() deployer.SecretStore {
	if a.secrets == nil {
		return nil
	}
	return a.secrets
}

func (a *app) newExecutor() *deployer.Executor {
	return deployer.NewExecutor(
		deployer.Config{
			ExecutablePath: a.cfg.Deployer.ExecutablePath,
			TempRoot:       a.cfg.Deployer.TempRoot,
			LogLevel:       a.cfg.Deployer.LogLevel,
			NuGetExePath:   a.cfg.Deployer.NuGetExePath,
		},
		a.repo,
		a.secretStore(),
		deployer.NewExecInvoker(a.logger),
		a.metrics,
		a.logger,
	)
}

func (a *app) newFeed() *feed.Client {
	return feed.NewClient(feed.Config{
		BaseURL:  a.cfg.Feed.BaseURL,
		Timeout:  a.cfg.Feed.Timeout,
		Username: a.cfg.Feed.Username,
		Password: a.cfg.Feed.Password,
	}, a.metrics, a.logger)
}

func (a *app) newMetadata() *metadata.Client {
	return metadata.NewClient(metadata.Config{
		Path:    a.cfg.Metadata.Path,
		Timeout: a.cfg.Metadata.Timeout,
	}, a.metrics, a.logger)
}

func (a *app) pollerConfig() orchestrator.PollerConfig {
	return orchestrator.PollerConfig{
		Enabled:           a.cfg.AutoDeploy.Enabled,
		StartupDelay:      a.cfg.AutoDeploy.StartupDelay,
		DefaultTimeout:    a.cfg.AutoDeploy.DefaultTimeout,
		EmptyTargetsDelay: a.cfg.AutoDeploy.EmptyTargetsDelay,
		MetadataTimeout:   a.cfg.AutoDeploy.MetadataTimeout,
		AfterDeployDelay:  a.cfg.AutoDeploy.AfterDeployDelay,
		MaxConcurrency:    a.cfg.AutoDeploy.MaxConcurrency,
	}
}

func (a *app) initTracing(ctx context.Context) error {
	return observability.InitGlobalTracer(ctx, observability.TracingConfig{
		Enabled:        a.cfg.Tracing.Enabled,
		ServiceName:    a.cfg.Tracing.ServiceName,
		ServiceVersion: a.cfg.Tracing.ServiceVersion,
		Environment:    a.cfg.Tracing.Environment,
		OTLPEndpoint:   a.cfg.Tracing.OTLPEndpoint,
		SampleRate:     a.cfg.Tracing.SampleRate,
		Insecure:       a.cfg.Tracing.Insecure,
	})
}

func (a *app) seed(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	n, err := state.Seed(ctx, a.repo, path, a.cfg.Seed.Timeout)
	if err != nil {
		return fmt.Errorf("failed to seed targets: %w", err)
	}
	a.logger.Info().Int("targets", n).Str("file", path).Msg("Seeded deployment targets")
	return nil
}

// Close releases the database and the secret store
func (a *app) Close() {
	if a.secrets != nil {
		if err := a.secrets.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close secret store")
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close database")
	}
}
