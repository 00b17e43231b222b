package orchestrator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/internal/queue"
)

// TargetStore is the target storage the engine needs
type TargetStore interface {
	TargetSource
	TargetLookup
}

// Engine wires the poller, the dispatch router and the manual trigger client
// around a single executor
type Engine struct {
	router *queue.Router
	poller *Poller
	client *Client
	logger zerolog.Logger
}

// NewEngine creates a new orchestrator engine. The router's consumers live
// until ctx is cancelled.
func NewEngine(
	ctx context.Context,
	config PollerConfig,
	targets TargetStore,
	metadata MetadataClient,
	feed VersionFeed,
	executor queue.Executor,
	recorder queue.ResultRecorder,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Engine {
	router := queue.NewRouter(ctx, executor, recorder, metrics, logger)

	return &Engine{
		router: router,
		poller: NewPoller(config, targets, metadata, feed, router, metrics, logger),
		client: NewClient(targets, router, metrics, logger),
		logger: logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Run runs the poller until ctx is cancelled, then stops the router and
// waits for in-flight jobs to finish their cleanup
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().Msg("Starting orchestrator engine")

	err := e.poller.Run(ctx)

	<-ctx.Done()
	e.router.Close()
	e.router.Wait()

	e.logger.Info().Msg("Orchestrator engine stopped")
	return err
}

// Router returns the dispatch router
func (e *Engine) Router() *queue.Router {
	return e.router
}

// Client returns the manual trigger client
func (e *Engine) Client() *Client {
	return e.client
}

// Poller returns the auto-deploy poller
func (e *Engine) Poller() *Poller {
	return e.poller
}
