package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// recordTimeout bounds how long a result may take to be recorded once the
// job itself has finished.
const recordTimeout = 10 * time.Second

// TargetQueue is an unbounded FIFO of jobs for a single target, drained by
// exactly one consumer goroutine. At most one job per queue executes at a time.
type TargetQueue struct {
	targetID string
	executor Executor
	recorder ResultRecorder
	metrics  *observability.Metrics
	logger   zerolog.Logger

	mu        sync.Mutex
	pending   []*models.DeploymentJob
	executing bool
	closed    bool
	processed int64

	wake chan struct{}
	done chan struct{}
}

func newTargetQueue(targetID string, executor Executor, recorder ResultRecorder, metrics *observability.Metrics, logger zerolog.Logger) *TargetQueue {
	return &TargetQueue{
		targetID: targetID,
		executor: executor,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger.With().Str("target_id", targetID).Logger(),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// enqueue appends job to the tail and wakes the consumer. It never blocks
// on execution.
func (q *TargetQueue) enqueue(job *models.DeploymentJob) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrRouterClosed
	}
	q.pending = append(q.pending, job)
	depth := len(q.pending)
	q.mu.Unlock()

	q.setDepth(depth)

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return nil
}

// close stops the queue from accepting further jobs
func (q *TargetQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next pops the head job and marks the queue as executing
func (q *TargetQueue) next() (*models.DeploymentJob, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, 0, false
	}

	job := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.executing = true

	return job, len(q.pending), true
}

func (q *TargetQueue) finish() {
	q.mu.Lock()
	q.executing = false
	q.processed++
	q.mu.Unlock()
}

// run is the single consumer loop. It exits when ctx is cancelled, or when
// the queue has been closed and fully drained.
func (q *TargetQueue) run(ctx context.Context) {
	defer close(q.done)

	q.logger.Debug().Msg("Target queue consumer started")

	for {
		if ctx.Err() != nil {
			q.drop(ctx)
			q.logger.Debug().Msg("Target queue consumer stopped (context cancelled)")
			return
		}

		job, depth, ok := q.next()
		if !ok {
			q.mu.Lock()
			closed := q.closed
			q.mu.Unlock()
			if closed {
				q.logger.Debug().Msg("Target queue consumer stopped (queue closed)")
				return
			}

			select {
			case <-ctx.Done():
			case <-q.wake:
			}
			continue
		}

		q.setDepth(depth)
		q.process(ctx, job)
		q.finish()
	}
}

// drop discards jobs that never started because the router is shutting
// down. Each one is still recorded as a Failure.
func (q *TargetQueue) drop(ctx context.Context) {
	q.mu.Lock()
	dropped := q.pending
	q.pending = nil
	q.mu.Unlock()

	q.setDepth(0)
	if len(dropped) == 0 {
		return
	}

	q.logger.Warn().
		Int("dropped_jobs", len(dropped)).
		Msg("Discarding queued jobs on shutdown")

	now := time.Now().UTC()
	for _, job := range dropped {
		q.record(ctx, models.FailedResult(job, now, ErrDroppedOnShutdown), q.logger.With().
			Str("job_id", job.ID.String()).
			Logger())
	}
}

func (q *TargetQueue) process(ctx context.Context, job *models.DeploymentJob) {
	logger := q.logger.With().
		Str("job_id", job.ID.String()).
		Str("package", job.PackageVersion.String()).
		Logger()

	logger.Info().Msg("Executing deployment job")

	result := q.execute(ctx, job, logger)

	event := logger.Info()
	if !result.ExitCode.IsSuccess() {
		event = logger.Error().Str("error", result.Error)
	}
	event.
		Str("exit_code", string(result.ExitCode)).
		Dur("duration", result.Duration()).
		Msg("Deployment job finished")

	q.record(ctx, result, logger)
}

// record hands result to the recorder on a context detached from ctx, so
// results still land while the router is being cancelled
func (q *TargetQueue) record(ctx context.Context, result *models.ExecutionResult, logger zerolog.Logger) {
	if q.recorder == nil {
		return
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := q.recorder.Record(recordCtx, result); err != nil {
		logger.Error().Err(err).Msg("Failed to record execution result")
	}
}

// execute calls the executor and converts errors, nil results and panics
// into Failure results so that one bad job never stops the queue.
func (q *TargetQueue) execute(ctx context.Context, job *models.DeploymentJob, logger zerolog.Logger) (result *models.ExecutionResult) {
	startedAt := time.Now().UTC()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Msg("Executor panicked")
			result = models.FailedResult(job, startedAt, fmt.Errorf("executor panic: %v", r))
		}
	}()

	result, err := q.executor.Execute(ctx, job)
	if err != nil {
		logger.Error().Err(err).Msg("Deployment job failed")
		if result == nil {
			return models.FailedResult(job, startedAt, err)
		}
		result.ExitCode = models.ExitCodeFailure
		if result.Error == "" {
			result.Error = err.Error()
		}
	}
	if result == nil {
		return models.FailedResult(job, startedAt, fmt.Errorf("executor returned no result"))
	}

	return result
}

func (q *TargetQueue) setDepth(depth int) {
	if q.metrics != nil {
		q.metrics.SetQueueDepth(q.targetID, float64(depth))
	}
}

// Stats returns the current queue state
func (q *TargetQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return QueueStats{
		TargetID:  q.targetID,
		Pending:   len(q.pending),
		Executing: q.executing,
		Processed: q.processed,
	}
}
