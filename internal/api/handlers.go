package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/alvesdmateus/auto-deployer/internal/orchestrator"
	"github.com/alvesdmateus/auto-deployer/internal/queue"
	"github.com/alvesdmateus/auto-deployer/internal/state"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// TargetLister lists deployment targets
type TargetLister interface {
	ListTargets(ctx context.Context) ([]models.DeploymentTarget, error)
	ListEligibleTargets(ctx context.Context) ([]models.DeploymentTarget, error)
}

// TaskLogReader reads recorded deployment jobs
type TaskLogReader interface {
	ListTaskLogs(ctx context.Context, targetID string, limit int) ([]state.TaskLog, error)
}

// DeployTrigger queues a manual deployment
type DeployTrigger interface {
	TriggerDeploy(ctx context.Context, targetID, packageID, version string) (*models.DeploymentJob, error)
}

// QueueInspector reports the state of the per-target queues
type QueueInspector interface {
	Stats() []queue.QueueStats
}

// TargetHandler handles target-related HTTP requests
type TargetHandler struct {
	targets  TargetLister
	taskLogs TaskLogReader
	trigger  DeployTrigger
}

// NewTargetHandler creates a new target handler
func NewTargetHandler(targets TargetLister, taskLogs TaskLogReader, trigger DeployTrigger) *TargetHandler {
	return &TargetHandler{
		targets:  targets,
		taskLogs: taskLogs,
		trigger:  trigger,
	}
}

// ListTargets handles GET /api/v1/targets. Only auto-deploy eligible targets
// are listed unless ?all=true is given.
func (h *TargetHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	var (
		targets []models.DeploymentTarget
		err     error
	)
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		targets, err = h.targets.ListTargets(r.Context())
	} else {
		targets, err = h.targets.ListEligibleTargets(r.Context())
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to list targets")
		RespondWithError(w, http.StatusInternalServerError, "Failed to list targets")
		return
	}

	response := ListTargetsResponse{
		Targets: make([]TargetResponse, 0, len(targets)),
		Total:   len(targets),
	}
	for _, t := range targets {
		response.Targets = append(response.Targets, TargetToResponse(t))
	}

	RespondWithJSON(w, http.StatusOK, response)
}

// ListTaskLogs handles GET /api/v1/targets/{targetID}/tasks
func (h *TargetHandler) ListTaskLogs(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetID")

	limit := state.DefaultTaskLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			RespondWithError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	logs, err := h.taskLogs.ListTaskLogs(r.Context(), targetID, limit)
	if err != nil {
		log.Error().Err(err).Str("target_id", targetID).Msg("Failed to list task logs")
		RespondWithError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	response := ListTaskLogsResponse{
		TargetID: targetID,
		Tasks:    make([]TaskLogResponse, 0, len(logs)),
		Limit:    limit,
	}
	for _, l := range logs {
		response.Tasks = append(response.Tasks, TaskLogToResponse(l))
	}

	RespondWithJSON(w, http.StatusOK, response)
}

// Deploy handles POST /api/v1/targets/{targetID}/deploy
func (h *TargetHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetID")

	var req DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Version == "" {
		RespondWithError(w, http.StatusBadRequest, "version is required")
		return
	}

	job, err := h.trigger.TriggerDeploy(r.Context(), targetID, req.PackageID, req.Version)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrUnknownTarget):
			RespondWithError(w, http.StatusNotFound, "Target not found")
		case errors.Is(err, orchestrator.ErrInvalidVersion):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, queue.ErrRouterClosed):
			RespondWithError(w, http.StatusServiceUnavailable, "Shutting down")
		default:
			log.Error().Err(err).Str("target_id", targetID).Msg("Failed to trigger deployment")
			RespondWithError(w, http.StatusInternalServerError, "Failed to trigger deployment")
		}
		return
	}

	RespondWithJSON(w, http.StatusAccepted, DeployResponse{
		JobID:    job.ID,
		TargetID: job.TargetID,
		Package:  job.PackageVersion.PackageID,
		Version:  job.PackageVersion.NormalizedVersion(),
	})
}

// QueueHandler handles dispatch router inspection
type QueueHandler struct {
	queues QueueInspector
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queues QueueInspector) *QueueHandler {
	return &QueueHandler{queues: queues}
}

// ListQueues handles GET /api/v1/queues
func (h *QueueHandler) ListQueues(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, ListQueuesResponse{Queues: h.queues.Stats()})
}
