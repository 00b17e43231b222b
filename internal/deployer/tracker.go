package deployer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/internal/state"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// maxStoredOutput caps the deployer output kept in a task log; the tail is kept
const maxStoredOutput = 64 * 1024

// TaskLogWriter persists task log records
type TaskLogWriter interface {
	CreateTaskLog(ctx context.Context, log *state.TaskLog) error
}

// Tracker records execution results in the database and in metrics
type Tracker struct {
	repo    TaskLogWriter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewTracker creates a new execution result tracker
func NewTracker(repo TaskLogWriter, metrics *observability.Metrics, logger zerolog.Logger) *Tracker {
	return &Tracker{
		repo:    repo,
		metrics: metrics,
		logger:  logger.With().Str("component", "tracker").Logger(),
	}
}

// Record persists an execution result as a task log
func (t *Tracker) Record(ctx context.Context, result *models.ExecutionResult) error {
	if t.metrics != nil {
		t.metrics.RecordJob(string(result.ExitCode), result.Duration().Seconds())
	}

	if t.repo == nil {
		return nil
	}

	taskLog := &state.TaskLog{
		JobID:      result.JobID,
		TargetID:   result.TargetID,
		PackageID:  result.PackageVersion.PackageID,
		Version:    result.PackageVersion.NormalizedVersion(),
		ExitCode:   string(result.ExitCode),
		Output:     truncateOutput(result.Output),
		Error:      result.Error,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}

	if err := t.repo.CreateTaskLog(ctx, taskLog); err != nil {
		return fmt.Errorf("failed to record task log: %w", err)
	}

	t.logger.Debug().
		Str("job_id", result.JobID.String()).
		Str("task_log_id", taskLog.ID.String()).
		Msg("Task log recorded")

	return nil
}

func truncateOutput(output string) string {
	output = strings.ToValidUTF8(output, "\uFFFD")
	if len(output) <= maxStoredOutput {
		return output
	}
	tail := output[len(output)-maxStoredOutput:]
	for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
		tail = tail[1:]
	}
	return tail
}
