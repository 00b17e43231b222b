package models

import (
	"time"

	"github.com/google/uuid"
)

// ExitCode is the terminal outcome of a deployment job
type ExitCode string

const (
	ExitCodeSuccess ExitCode = "SUCCESS"
	ExitCodeFailure ExitCode = "FAILURE"
)

// IsSuccess reports whether the code is ExitCodeSuccess
func (c ExitCode) IsSuccess() bool {
	return c == ExitCodeSuccess
}

// DeploymentJob is one decided unit of deployment work
type DeploymentJob struct {
	ID             uuid.UUID
	TargetID       string
	PackageVersion PackageVersion
	CreatedAt      time.Time

	// TempResources accumulates the files and directories created while
	// preparing this job. It is owned exclusively by the job.
	TempResources *TempResources
}

// NewDeploymentJob creates a job with a fresh id
func NewDeploymentJob(targetID string, version PackageVersion) *DeploymentJob {
	return &DeploymentJob{
		ID:             uuid.New(),
		TargetID:       targetID,
		PackageVersion: version,
		CreatedAt:      time.Now().UTC(),
		TempResources:  &TempResources{},
	}
}

// ExecutionResult is the terminal record of one job
type ExecutionResult struct {
	JobID          uuid.UUID
	TargetID       string
	PackageVersion PackageVersion
	ExitCode       ExitCode
	Output         string
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Duration returns how long the job took to execute
func (r *ExecutionResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedResult builds a Failure result for job from err
func FailedResult(job *DeploymentJob, startedAt time.Time, err error) *ExecutionResult {
	result := &ExecutionResult{
		JobID:          job.ID,
		TargetID:       job.TargetID,
		PackageVersion: job.PackageVersion,
		ExitCode:       ExitCodeFailure,
		StartedAt:      startedAt,
		FinishedAt:     time.Now().UTC(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}
