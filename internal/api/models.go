package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/alvesdmateus/auto-deployer/internal/queue"
	"github.com/alvesdmateus/auto-deployer/internal/state"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// DeployRequest represents a request to deploy a package version to a target
type DeployRequest struct {
	PackageID string `json:"packageId"`
	Version   string `json:"version"`
}

// DeployResponse is returned when a deploy job has been queued
type DeployResponse struct {
	JobID    uuid.UUID `json:"job_id"`
	TargetID string    `json:"target_id"`
	Package  string    `json:"package"`
	Version  string    `json:"version"`
}

// TargetResponse represents a deployment target in API responses
type TargetResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	PackageID         string `json:"package_id"`
	Enabled           bool   `json:"enabled"`
	AutoDeployEnabled bool   `json:"auto_deploy_enabled"`
	AllowPrerelease   bool   `json:"allow_prerelease"`
	URL               string `json:"url,omitempty"`
	TargetDirectory   string `json:"target_directory,omitempty"`
	IISSiteName       string `json:"iis_site_name,omitempty"`
}

// ListTargetsResponse represents a list of targets
type ListTargetsResponse struct {
	Targets []TargetResponse `json:"targets"`
	Total   int              `json:"total"`
}

// TaskLogResponse represents a recorded deployment job
type TaskLogResponse struct {
	ID         uuid.UUID `json:"id"`
	JobID      uuid.UUID `json:"job_id"`
	TargetID   string    `json:"target_id"`
	PackageID  string    `json:"package_id"`
	Version    string    `json:"version"`
	ExitCode   string    `json:"exit_code"`
	Error      string    `json:"error,omitempty"`
	Output     string    `json:"output,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}

// ListTaskLogsResponse represents the recent jobs of a target
type ListTaskLogsResponse struct {
	TargetID string            `json:"target_id"`
	Tasks    []TaskLogResponse `json:"tasks"`
	Limit    int               `json:"limit"`
}

// ListQueuesResponse represents the state of the dispatch router
type ListQueuesResponse struct {
	Queues []queue.QueueStats `json:"queues"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Queues   int    `json:"queues"`
	Pending  int64  `json:"pending"`
	Version  string `json:"version"`
}

// TargetToResponse converts a deployment target to its API form. Publish
// settings are never exposed.
func TargetToResponse(t models.DeploymentTarget) TargetResponse {
	return TargetResponse{
		ID:                t.ID,
		Name:              t.Name,
		PackageID:         t.PackageID,
		Enabled:           t.Enabled,
		AutoDeployEnabled: t.AutoDeployEnabled,
		AllowPrerelease:   t.AllowPrerelease,
		URL:               t.URL,
		TargetDirectory:   t.TargetDirectory,
		IISSiteName:       t.IISSiteName,
	}
}

// TaskLogToResponse converts a task log to its API form
func TaskLogToResponse(l state.TaskLog) TaskLogResponse {
	return TaskLogResponse{
		ID:         l.ID,
		JobID:      l.JobID,
		TargetID:   l.TargetID,
		PackageID:  l.PackageID,
		Version:    l.Version,
		ExitCode:   l.ExitCode,
		Error:      l.Error,
		Output:     l.Output,
		StartedAt:  l.StartedAt,
		FinishedAt: l.FinishedAt,
		DurationMS: l.FinishedAt.Sub(l.StartedAt).Milliseconds(),
	}
}
