package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/blang/semver"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// TargetSource lists targets that have auto-deploy turned on
type TargetSource interface {
	ListEligibleTargets(ctx context.Context) ([]models.DeploymentTarget, error)
}

// MetadataClient reads what a target is currently running
type MetadataClient interface {
	GetDeployedVersion(ctx context.Context, target models.DeploymentTarget) (*models.DeployedVersion, error)
}

// VersionFeed lists the published versions of a package
type VersionFeed interface {
	ListAvailableVersions(ctx context.Context, packageID string) ([]models.PackageVersion, error)
}

// Submitter accepts deployment jobs without waiting for them to run
type Submitter interface {
	Submit(job *models.DeploymentJob) error
}

// Cycle outcomes
const (
	OutcomeCompleted     = "completed"
	OutcomeTargetsFailed = "targets_failed"
	OutcomeNoTargets     = "no_targets"
	OutcomeNoURLTargets  = "no_url_targets"
	OutcomeCancelled     = "cancelled"
)

// PollerConfig holds the auto-deploy loop timings
type PollerConfig struct {
	Enabled           bool
	StartupDelay      time.Duration
	DefaultTimeout    time.Duration
	EmptyTargetsDelay time.Duration
	MetadataTimeout   time.Duration
	AfterDeployDelay  time.Duration
	MaxConcurrency    int
}

// DefaultPollerConfig returns the default loop timings
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Enabled:           true,
		StartupDelay:      10 * time.Second,
		DefaultTimeout:    30 * time.Second,
		EmptyTargetsDelay: 30 * time.Second,
		MetadataTimeout:   10 * time.Second,
		AfterDeployDelay:  30 * time.Second,
		MaxConcurrency:    8,
	}
}

// CycleReport summarizes one poll cycle
type CycleReport struct {
	Outcome   string
	Targets   int
	WithURL   int
	Known     int
	Submitted int
	Skipped   int
	Jobs      []*models.DeploymentJob
	Delay     time.Duration
}

// Poller periodically looks for targets running an outdated package version
// and submits deployment jobs for them
type Poller struct {
	config   PollerConfig
	targets  TargetSource
	metadata MetadataClient
	feed     VersionFeed
	router   Submitter
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewPoller creates a new auto-deploy poller
func NewPoller(config PollerConfig, targets TargetSource, metadata MetadataClient, feed VersionFeed, router Submitter, metrics *observability.Metrics, logger zerolog.Logger) *Poller {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}

	return &Poller{
		config:   config,
		targets:  targets,
		metadata: metadata,
		feed:     feed,
		router:   router,
		metrics:  metrics,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run executes poll cycles until ctx is cancelled
func (p *Poller) Run(ctx context.Context) error {
	if !p.config.Enabled {
		p.logger.Info().Msg("Auto-deploy is disabled")
		return nil
	}

	p.logger.Info().
		Dur("startup_delay", p.config.StartupDelay).
		Int("max_concurrency", p.config.MaxConcurrency).
		Msg("Starting auto-deploy poller")

	if !sleep(ctx, p.config.StartupDelay) {
		p.logger.Info().Msg("Auto-deploy poller stopped (context cancelled)")
		return nil
	}

	for {
		report := p.RunCycle(ctx)
		if !sleep(ctx, report.Delay) {
			p.logger.Info().Msg("Auto-deploy poller stopped (context cancelled)")
			return nil
		}
	}
}

// RunCycle performs a single sweep over the eligible targets and reports how
// long to wait before the next one
func (p *Poller) RunCycle(ctx context.Context) (report CycleReport) {
	ctx, span := observability.GetGlobalTracer().StartSpan(ctx, "poller.cycle")
	defer span.End()

	defer func() {
		if ctx.Err() != nil {
			report.Outcome = OutcomeCancelled
		}
		span.SetAttributes(
			observability.AttrCycleTargets.Int(report.Targets),
			observability.AttrCycleSubmitted.Int(report.Submitted),
		)
		if p.metrics != nil {
			p.metrics.RecordPollCycle(report.Outcome, report.Submitted)
		}
		p.logger.Debug().
			Str("outcome", report.Outcome).
			Int("targets", report.Targets).
			Int("with_url", report.WithURL).
			Int("known", report.Known).
			Int("submitted", report.Submitted).
			Int("skipped", report.Skipped).
			Dur("next_delay", report.Delay).
			Msg("Poll cycle finished")
	}()

	report.Delay = p.config.EmptyTargetsDelay

	targets, err := p.listTargets(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to list eligible targets")
		report.Outcome = OutcomeTargetsFailed
		return report
	}
	report.Targets = len(targets)
	if len(targets) == 0 {
		report.Outcome = OutcomeNoTargets
		return report
	}

	withURL := make([]models.DeploymentTarget, 0, len(targets))
	for _, target := range targets {
		if target.HasURL() {
			withURL = append(withURL, target)
		}
	}
	report.WithURL = len(withURL)
	if len(withURL) == 0 {
		report.Outcome = OutcomeNoURLTargets
		return report
	}

	deployed := p.fetchDeployedVersions(ctx, withURL)

	known := make([]int, 0, len(withURL))
	for i := range withURL {
		if current, ok := deployed[i]; ok && current.Known() {
			known = append(known, i)
		} else {
			report.Skipped++
		}
	}
	report.Known = len(known)

	decisions := p.decideAll(ctx, withURL, deployed, known)

	// Submission stays sequential and in target order
	for _, i := range known {
		if ctx.Err() != nil {
			return report
		}

		target, current, d := withURL[i], deployed[i], decisions[i]
		if d.err != nil {
			p.logger.Warn().Err(d.err).Str("target_id", target.ID).Msg("Skipping target this cycle")
			report.Skipped++
			continue
		}
		job := d.job
		if job == nil {
			continue
		}

		if err := p.router.Submit(job); err != nil {
			p.logger.Error().
				Err(err).
				Str("target_id", target.ID).
				Str("package", job.PackageVersion.String()).
				Msg("Failed to submit deployment job")
			report.Skipped++
			continue
		}

		p.logger.Info().
			Str("job_id", job.ID.String()).
			Str("target_id", target.ID).
			Str("deployed", current.PackageID+" "+models.NormalizeVersion(*current.Version)).
			Str("package", job.PackageVersion.String()).
			Msg("Submitted deployment job")

		if p.metrics != nil {
			p.metrics.RecordJobSubmitted("poller")
		}
		report.Submitted++
		report.Jobs = append(report.Jobs, job)
	}

	report.Outcome = OutcomeCompleted
	report.Delay = p.config.AfterDeployDelay
	return report
}

func (p *Poller) listTargets(ctx context.Context) ([]models.DeploymentTarget, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.DefaultTimeout)
	defer cancel()

	return p.targets.ListEligibleTargets(ctx)
}

// fetchDeployedVersions queries every target concurrently under one shared
// deadline. Lookups that fail or are still running at the deadline are absent
// from the result.
func (p *Poller) fetchDeployedVersions(ctx context.Context, targets []models.DeploymentTarget) map[int]*models.DeployedVersion {
	ctx, cancel := context.WithTimeout(ctx, p.config.MetadataTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[int]*models.DeployedVersion, len(targets))
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)

		var g errgroup.Group
		g.SetLimit(p.config.MaxConcurrency)
		for i, target := range targets {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				deployed, err := p.metadata.GetDeployedVersion(ctx, target)
				if err != nil {
					p.logger.Warn().Err(err).Str("target_id", target.ID).Msg("Failed to get deployed version")
					return nil
				}
				mu.Lock()
				results[i] = deployed
				mu.Unlock()
				return nil
			})
		}
		g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn().
			Dur("timeout", p.config.MetadataTimeout).
			Msg("Metadata lookups did not finish before the deadline")
	}

	mu.Lock()
	defer mu.Unlock()

	snapshot := make(map[int]*models.DeployedVersion, len(results))
	for i, deployed := range results {
		snapshot[i] = deployed
	}
	return snapshot
}

type decision struct {
	job *models.DeploymentJob
	err error
}

// decideAll runs the feed lookup and upgrade choice for the known targets
// with at most MaxConcurrency in flight. Targets sharing a package share one
// feed request.
func (p *Poller) decideAll(ctx context.Context, targets []models.DeploymentTarget, deployed map[int]*models.DeployedVersion, known []int) map[int]decision {
	var (
		mu        sync.Mutex
		decisions = make(map[int]decision, len(known))
	)

	var g errgroup.Group
	g.SetLimit(p.config.MaxConcurrency)
	for _, i := range known {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			job, err := p.decide(ctx, targets[i], deployed[i])
			mu.Lock()
			decisions[i] = decision{job: job, err: err}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return decisions
}

// decide returns a job when the feed has a newer version than the target runs,
// or nil when the target is up to date
func (p *Poller) decide(ctx context.Context, target models.DeploymentTarget, current *models.DeployedVersion) (*models.DeploymentJob, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.DefaultTimeout)
	defer cancel()

	ctx, span := observability.GetGlobalTracer().StartSpan(ctx, "poller.decide",
		trace.WithAttributes(
			observability.AttrTargetID.String(target.ID),
			observability.AttrPackageID.String(target.PackageID),
		),
	)
	defer span.End()

	available, err := p.feed.ListAvailableVersions(ctx, target.PackageID)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		p.logger.Debug().Str("target_id", target.ID).Str("package_id", target.PackageID).Msg("Feed has no versions")
		return nil, nil
	}

	chosen, ok := SelectUpgrade(available, target.PackageID, *current.Version, target.AllowPrerelease)
	if !ok {
		return nil, nil
	}

	return models.NewDeploymentJob(target.ID, chosen), nil
}

// SelectUpgrade picks the highest available version of packageID that is
// strictly greater than deployed. Prerelease versions are ignored unless
// allowPrerelease is set.
func SelectUpgrade(available []models.PackageVersion, packageID string, deployed semver.Version, allowPrerelease bool) (models.PackageVersion, bool) {
	var (
		best  models.PackageVersion
		found bool
	)

	for _, candidate := range available {
		if !allowPrerelease && candidate.IsPrerelease() {
			continue
		}
		if !candidate.SamePackage(packageID) {
			continue
		}
		if candidate.Version.LTE(deployed) {
			continue
		}
		if !found || candidate.Version.GT(best.Version) {
			best = candidate
			found = true
		}
	}

	return best, found
}

// sleep waits for d or until ctx is cancelled. It returns false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
