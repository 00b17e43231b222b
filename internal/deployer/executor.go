package deployer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// Executor prepares and runs a single deployment job
type Executor struct {
	config  Config
	targets TargetReader
	secrets SecretStore
	invoker Invoker
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewExecutor creates a new deployment executor
func NewExecutor(config Config, targets TargetReader, secrets SecretStore, invoker Invoker, metrics *observability.Metrics, logger zerolog.Logger) *Executor {
	return &Executor{
		config:  config,
		targets: targets,
		secrets: secrets,
		invoker: invoker,
		metrics: metrics,
		logger:  logger.With().Str("component", "executor").Logger(),
	}
}

// Execute runs one deployment job to completion. Every failure is reported both
// as a Failure result and as the returned error. Temporary resources created for
// the job are removed before Execute returns, whatever the outcome.
func (e *Executor) Execute(ctx context.Context, job *models.DeploymentJob) (*models.ExecutionResult, error) {
	startedAt := time.Now().UTC()
	logger := e.logger.With().
		Str("job_id", job.ID.String()).
		Str("target_id", job.TargetID).
		Str("package", job.PackageVersion.String()).
		Logger()

	ctx, span := observability.GetGlobalTracer().StartSpan(ctx, "deployer.execute",
		trace.WithAttributes(observability.JobSpanAttributes(
			job.ID.String(), job.TargetID, job.PackageVersion.PackageID, job.PackageVersion.NormalizedVersion(),
		)...),
	)
	defer span.End()

	if job.TempResources == nil {
		job.TempResources = &models.TempResources{}
	}
	defer e.cleanup(job, logger)

	if e.metrics != nil {
		e.metrics.IncJobsExecuting()
		defer e.metrics.DecJobsExecuting()
	}

	fail := func(output string, err error) (*models.ExecutionResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(observability.AttrJobExitCode.String(string(models.ExitCodeFailure)))
		result := models.FailedResult(job, startedAt, err)
		result.Output = output
		return result, err
	}

	executable, err := e.executablePath()
	if err != nil {
		return fail("", err)
	}

	target, err := e.targets.GetTarget(ctx, job.TargetID)
	if err != nil {
		return fail("", fmt.Errorf("%w: %s: %v", ErrTargetNotFound, job.TargetID, err))
	}
	if target == nil {
		return fail("", fmt.Errorf("%w: %s", ErrTargetNotFound, job.TargetID))
	}

	inv, err := e.prepare(ctx, job, target, executable, logger)
	if err != nil {
		return fail("", err)
	}

	logger.Info().
		Str("executable", inv.ExecutablePath).
		Str("manifest", inv.Args[0]).
		Msg("Invoking deployer")

	res, err := e.invoker.Invoke(ctx, inv)
	var output string
	if res != nil {
		output = res.Output
	}
	if err != nil {
		return fail(output, fmt.Errorf("deployer invocation failed: %w", err))
	}
	if !res.Installed() {
		return fail(output, ErrMissingInstallResult)
	}

	logger.Info().
		Str("package_directory", res.PackageDirectory).
		Str("installed_version", models.NormalizeVersion(*res.Version)).
		Msg("Package deployed")

	span.SetAttributes(observability.AttrJobExitCode.String(string(models.ExitCodeSuccess)))
	span.SetStatus(codes.Ok, "")

	return &models.ExecutionResult{
		JobID:          job.ID,
		TargetID:       job.TargetID,
		PackageVersion: job.PackageVersion,
		ExitCode:       models.ExitCodeSuccess,
		Output:         output,
		StartedAt:      startedAt,
		FinishedAt:     time.Now().UTC(),
	}, nil
}

// prepare materializes everything the deployer needs and returns the invocation
func (e *Executor) prepare(ctx context.Context, job *models.DeploymentJob, target *models.DeploymentTarget, executable string, logger zerolog.Logger) (*Invocation, error) {
	targetDir, err := e.targetDirectory(job, target)
	if err != nil {
		return nil, err
	}

	params, err := resolveParameters(target, logger)
	if err != nil {
		return nil, err
	}

	publishSettings, err := e.resolvePublishSettings(ctx, job, target, logger)
	if err != nil {
		return nil, err
	}

	manifest := NewManifest(target, job.PackageVersion, targetDir, publishSettings, params)
	manifestPath, err := writeManifest(e.config.tempRoot(), job, manifest)
	if err != nil {
		return nil, err
	}

	env := []string{EnvAllowPrerelease + "=true"}
	if e.config.LogLevel != "" {
		env = append(env, EnvLogLevel+"="+e.config.LogLevel)
	}
	if e.config.NuGetExePath != "" {
		env = append(env, EnvNuGetExePath+"="+e.config.NuGetExePath)
	}

	return &Invocation{
		ExecutablePath: executable,
		Args:           []string{manifestPath, ArgAllowPrerelease, ArgPlainOutput},
		Env:            env,
		Dir:            filepath.Dir(executable),
	}, nil
}

// targetDirectory returns the target's explicit directory or synthesizes a
// per-job directory under the temp root
func (e *Executor) targetDirectory(job *models.DeploymentJob, target *models.DeploymentTarget) (string, error) {
	if target.TargetDirectory != "" {
		return target.TargetDirectory, nil
	}

	dir := filepath.Join(e.config.tempRoot(), "autodeploy", job.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}
	job.TempResources.AddDirectory(dir)
	return dir, nil
}

func (e *Executor) executablePath() (string, error) {
	if e.config.ExecutablePath == "" {
		return "", fmt.Errorf("%w: no executable configured", ErrExecutableNotFound)
	}

	path, err := filepath.Abs(e.config.ExecutablePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecutableNotFound, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrExecutableNotFound, path)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrExecutableNotFound, path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrExecutableNotFound, path)
	}
	return path, nil
}

func (e *Executor) cleanup(job *models.DeploymentJob, logger zerolog.Logger) {
	errs := job.TempResources.Cleanup()
	for _, err := range errs {
		logger.Warn().Err(err).Msg("Failed to remove temporary resource")
	}
	if len(errs) > 0 && e.metrics != nil {
		e.metrics.AddTempCleanupFailures(len(errs))
	}
}
