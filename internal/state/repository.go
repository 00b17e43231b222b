package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// DefaultTaskLogLimit is used when ListTaskLogs is called without a limit
const DefaultTaskLogLimit = 50

// Repository provides database operations for targets and task logs
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new state repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListTargets retrieves every target ordered by id
func (r *Repository) ListTargets(ctx context.Context) ([]models.DeploymentTarget, error) {
	var records []Target

	if err := r.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	return toDomain(records), nil
}

// ListEligibleTargets retrieves targets that are enabled with auto-deploy turned on
func (r *Repository) ListEligibleTargets(ctx context.Context) ([]models.DeploymentTarget, error) {
	var records []Target

	if err := r.db.WithContext(ctx).
		Where("enabled = ? AND auto_deploy_enabled = ?", true, true).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list eligible targets: %w", err)
	}

	return toDomain(records), nil
}

// GetTarget retrieves a target by id, ignoring case
func (r *Repository) GetTarget(ctx context.Context, id string) (*models.DeploymentTarget, error) {
	var record Target

	if err := r.db.WithContext(ctx).
		Where("LOWER(id) = ?", strings.ToLower(strings.TrimSpace(id))).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("target %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get target: %w", err)
	}

	target := record.ToDomain()
	return &target, nil
}

// UpsertTarget creates the target or replaces every column of an existing one
func (r *Repository) UpsertTarget(ctx context.Context, target models.DeploymentTarget) error {
	if strings.TrimSpace(target.ID) == "" {
		return fmt.Errorf("target id is required")
	}

	record := TargetFromDomain(target)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(record).Error; err != nil {
		return fmt.Errorf("failed to upsert target: %w", err)
	}

	return nil
}

// DeleteTarget deletes a target by id
func (r *Repository) DeleteTarget(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Target{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete target: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("target %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateTaskLog stores a task log, generating its id when unset
func (r *Repository) CreateTaskLog(ctx context.Context, log *TaskLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create task log: %w", err)
	}

	return nil
}

// ListTaskLogs retrieves the most recent task logs of a target, newest first
func (r *Repository) ListTaskLogs(ctx context.Context, targetID string, limit int) ([]TaskLog, error) {
	if limit <= 0 {
		limit = DefaultTaskLogLimit
	}

	var logs []TaskLog
	if err := r.db.WithContext(ctx).
		Where("LOWER(target_id) = ?", strings.ToLower(strings.TrimSpace(targetID))).
		Order("finished_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list task logs: %w", err)
	}

	return logs, nil
}

func toDomain(records []Target) []models.DeploymentTarget {
	targets := make([]models.DeploymentTarget, 0, len(records))
	for i := range records {
		targets = append(targets, records[i].ToDomain())
	}
	return targets
}
