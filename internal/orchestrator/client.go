package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/internal/state"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// ErrUnknownTarget is returned when a manual trigger names a target that does not exist
var ErrUnknownTarget = errors.New("unknown deployment target")

// ErrInvalidVersion is returned when a manual trigger names a version that does not parse
var ErrInvalidVersion = errors.New("invalid package version")

// TargetLookup loads a single target
type TargetLookup interface {
	GetTarget(ctx context.Context, id string) (*models.DeploymentTarget, error)
}

// Client submits deployments on demand, outside the poll loop
type Client struct {
	targets TargetLookup
	router  Submitter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewClient creates a new orchestrator client for API and CLI use
func NewClient(targets TargetLookup, router Submitter, metrics *observability.Metrics, logger zerolog.Logger) *Client {
	return &Client{
		targets: targets,
		router:  router,
		metrics: metrics,
		logger:  logger.With().Str("component", "orchestrator-client").Logger(),
	}
}

// TriggerDeploy submits a deployment of version to a target. An empty packageID
// means the target's configured package. Unlike the poller, any version may be
// requested, including downgrades and prereleases.
func (c *Client) TriggerDeploy(ctx context.Context, targetID, packageID, version string) (*models.DeploymentJob, error) {
	target, err := c.targets.GetTarget(ctx, targetID)
	switch {
	case errors.Is(err, state.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	case err != nil:
		return nil, fmt.Errorf("failed to load target %s: %w", targetID, err)
	case target == nil:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}

	if strings.TrimSpace(packageID) == "" {
		packageID = target.PackageID
	}

	pv, err := models.NewPackageVersion(packageID, version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVersion, err)
	}

	c.logger.Info().
		Str("target_id", target.ID).
		Str("package", pv.String()).
		Msg("Triggering deploy job")

	job := models.NewDeploymentJob(target.ID, pv)
	if err := c.router.Submit(job); err != nil {
		c.logger.Error().
			Err(err).
			Str("target_id", target.ID).
			Msg("Failed to submit deploy job")
		return nil, fmt.Errorf("submit deploy job: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordJobSubmitted("manual")
	}

	c.logger.Info().
		Str("job_id", job.ID.String()).
		Str("target_id", target.ID).
		Msg("Deploy job submitted successfully")

	return job, nil
}
