package queue

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// Router owns one TargetQueue per target id and routes submitted jobs to it.
// Queues are created lazily on first use.
type Router struct {
	ctx      context.Context
	executor Executor
	recorder ResultRecorder
	metrics  *observability.Metrics
	logger   zerolog.Logger

	mu     sync.Mutex
	queues map[string]*TargetQueue
	closed bool
	wg     sync.WaitGroup
}

// NewRouter creates a dispatch router. Consumer goroutines live until ctx is
// cancelled or the router is closed and drained. metrics may be nil.
func NewRouter(ctx context.Context, executor Executor, recorder ResultRecorder, metrics *observability.Metrics, logger zerolog.Logger) *Router {
	return &Router{
		ctx:      ctx,
		executor: executor,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger.With().Str("component", "dispatch-router").Logger(),
		queues:   make(map[string]*TargetQueue),
	}
}

// Submit appends job to its target's queue and returns immediately
func (r *Router) Submit(job *models.DeploymentJob) error {
	if job == nil || strings.TrimSpace(job.TargetID) == "" {
		return ErrInvalidJob
	}
	if job.TempResources == nil {
		job.TempResources = &models.TempResources{}
	}

	q, err := r.queueFor(job.TargetID)
	if err != nil {
		return err
	}

	if err := q.enqueue(job); err != nil {
		return err
	}

	r.logger.Info().
		Str("job_id", job.ID.String()).
		Str("target_id", job.TargetID).
		Str("package", job.PackageVersion.String()).
		Msg("Deployment job enqueued")

	return nil
}

// queueFor returns the queue for targetID, creating and starting it on first
// use. Concurrent first submissions for the same id get the same queue.
func (r *Router) queueFor(targetID string) (*TargetQueue, error) {
	key := queueKey(targetID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRouterClosed
	}

	if q, ok := r.queues[key]; ok {
		return q, nil
	}

	q := newTargetQueue(strings.TrimSpace(targetID), r.executor, r.recorder, r.metrics, r.logger)
	r.queues[key] = q

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		q.run(r.ctx)
	}()

	r.logger.Debug().
		Str("target_id", targetID).
		Int("queues", len(r.queues)).
		Msg("Created target queue")

	return q, nil
}

// Close stops accepting jobs. Queued jobs still run unless the router
// context is cancelled.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	queues := make([]*TargetQueue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.Unlock()

	for _, q := range queues {
		q.close()
	}

	r.logger.Info().Int("queues", len(queues)).Msg("Dispatch router closed")
}

// Wait blocks until every consumer goroutine has exited
func (r *Router) Wait() {
	r.wg.Wait()
}

// Stats returns the state of every known queue, ordered by target id
func (r *Router) Stats() []QueueStats {
	r.mu.Lock()
	queues := make([]*TargetQueue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.Unlock()

	stats := make([]QueueStats, 0, len(queues))
	for _, q := range queues {
		stats = append(stats, q.Stats())
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].TargetID < stats[j].TargetID
	})

	return stats
}

func queueKey(targetID string) string {
	return strings.ToLower(strings.TrimSpace(targetID))
}
