package queue

import (
	"context"
	"errors"

	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

var (
	// ErrRouterClosed is returned by Submit after the router stopped accepting jobs
	ErrRouterClosed = errors.New("dispatch router is closed")

	// ErrDroppedOnShutdown is the failure recorded for queued jobs that never
	// started because the router was cancelled
	ErrDroppedOnShutdown = errors.New("job dropped on shutdown")

	// ErrInvalidJob is returned by Submit for a nil job or a job without a target id
	ErrInvalidJob = errors.New("invalid deployment job")
)

// Executor runs one deployment job to completion
type Executor interface {
	// Execute prepares and runs the job. It must release every temporary
	// resource it created before returning.
	Execute(ctx context.Context, job *models.DeploymentJob) (*models.ExecutionResult, error)
}

// ResultRecorder receives the terminal result of every job, including jobs
// dropped on shutdown
type ResultRecorder interface {
	Record(ctx context.Context, result *models.ExecutionResult) error
}

// QueueStats is a point-in-time view of one target queue
type QueueStats struct {
	TargetID  string `json:"target_id"`
	Pending   int    `json:"pending"`
	Executing bool   `json:"executing"`
	Processed int64  `json:"processed"`
}
