package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/domain/workflow"
	"github.com/caseflow/caseflow/internal/infrastructure/persistence/sqlite"
)

// InstanceRepository implements port.InstanceRepository
type InstanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db *sql.DB, logger *zap.Logger) port.InstanceRepository {
	return &InstanceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new instance row
func (r *InstanceRepository) Create(ctx context.Context, instance *entity.WorkflowInstance) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO workflow_instances (template_id, created_by, created_at, status, current_step_id)
		VALUES (?, ?, ?, ?, ?)
	`,
		instance.TemplateID,
		instance.CreatedBy,
		instance.CreatedAt,
		instance.Status.String(),
		nullID(instance.CurrentStepID),
	)
	if err != nil {
		r.logger.Error("Failed to create instance", zap.Error(err))
		return fmt.Errorf("failed to create instance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	instance.ID = id
	return nil
}

// GetByID retrieves an instance without its steps
func (r *InstanceRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowInstance, error) {
	var instance entity.WorkflowInstance
	var status string
	var currentStepID sql.NullInt64

	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, template_id, created_by, created_at, status, current_step_id
		FROM workflow_instances
		WHERE id = ?
	`, id).Scan(
		&instance.ID,
		&instance.TemplateID,
		&instance.CreatedBy,
		&instance.CreatedAt,
		&status,
		&currentStepID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get instance by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	instance.Status = workflow.InstanceStatus(status)
	if currentStepID.Valid {
		instance.CurrentStepID = &currentStepID.Int64
	}
	return &instance, nil
}

// SetCurrentStep points the instance at a step, unconditionally
func (r *InstanceRepository) SetCurrentStep(ctx context.Context, instanceID int64, stepID *int64) error {
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE workflow_instances SET current_step_id = ? WHERE id = ?
	`, nullID(stepID), instanceID)
	if err != nil {
		r.logger.Error("Failed to set current step", zap.Int64("instance_id", instanceID), zap.Error(err))
		return fmt.Errorf("failed to set current step: %w", err)
	}
	return nil
}

// AdvanceCurrentStep moves the current-step pointer with an optimistic
// guard: the update applies only while the pointer still is fromStepID and
// the instance is still in progress. A false return means a concurrent
// transition won the race.
func (r *InstanceRepository) AdvanceCurrentStep(ctx context.Context, instanceID, fromStepID int64, toStepID *int64, status workflow.InstanceStatus) (bool, error) {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE workflow_instances
		SET current_step_id = ?, status = ?
		WHERE id = ? AND current_step_id = ? AND status = ?
	`,
		nullID(toStepID),
		status.String(),
		instanceID,
		fromStepID,
		workflow.InstanceInProgress.String(),
	)
	if err != nil {
		r.logger.Error("Failed to advance instance", zap.Int64("instance_id", instanceID), zap.Error(err))
		return false, fmt.Errorf("failed to advance instance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// ListByUser retrieves instances created by the user or with any step
// assigned to the user, newest first
func (r *InstanceRepository) ListByUser(ctx context.Context, userID string) ([]*entity.WorkflowInstance, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `
		SELECT DISTINCT i.id, i.template_id, i.created_by, i.created_at, i.status, i.current_step_id
		FROM workflow_instances i
		LEFT JOIN instance_steps s ON s.instance_id = i.id
		WHERE i.created_by = ? OR s.assigned_to = ?
		ORDER BY i.created_at DESC
	`, userID, userID)
	if err != nil {
		r.logger.Error("Failed to list instances by user", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	var instances []*entity.WorkflowInstance
	for rows.Next() {
		var instance entity.WorkflowInstance
		var status string
		var currentStepID sql.NullInt64

		err := rows.Scan(
			&instance.ID,
			&instance.TemplateID,
			&instance.CreatedBy,
			&instance.CreatedAt,
			&status,
			&currentStepID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instance.Status = workflow.InstanceStatus(status)
		if currentStepID.Valid {
			instance.CurrentStepID = &currentStepID.Int64
		}
		instances = append(instances, &instance)
	}
	return instances, rows.Err()
}

// CountByTemplateID returns how many instances reference a template
func (r *InstanceRepository) CountByTemplateID(ctx context.Context, templateID int64) (int, error) {
	var count int
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM workflow_instances WHERE template_id = ?
	`, templateID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count instances: %w", err)
	}
	return count, nil
}

// nullID maps a nil step id to SQL NULL
func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// Verify interface compliance
var _ port.InstanceRepository = (*InstanceRepository)(nil)
