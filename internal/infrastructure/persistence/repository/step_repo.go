package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/domain/workflow"
	"github.com/caseflow/caseflow/internal/infrastructure/persistence/sqlite"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an instance step
func (r *StepRepository) Create(ctx context.Context, step *entity.InstanceStep) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO instance_steps (
			instance_id, template_step_id, step_name, step_order, status,
			assigned_to, started_at, completed_at, completed_by, comments
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		step.InstanceID,
		step.TemplateStepID,
		step.StepName,
		step.Order,
		step.Status.String(),
		nullString(step.AssignedTo),
		step.StartedAt,
		step.CompletedAt,
		nullString(step.CompletedBy),
		nullString(step.Comments),
	)
	if err != nil {
		r.logger.Error("Failed to create instance step", zap.Error(err))
		return fmt.Errorf("failed to create step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	step.ID = id
	return nil
}

// GetByID retrieves a step by its id
func (r *StepRepository) GetByID(ctx context.Context, id int64) (*entity.InstanceStep, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, instance_id, template_step_id, step_name, step_order, status,
			assigned_to, started_at, completed_at, completed_by, comments
		FROM instance_steps
		WHERE id = ?
	`, id)

	step, err := scanStep(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get step by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	return step, nil
}

// ListByInstanceID retrieves the steps of an instance ordered by step order
func (r *StepRepository) ListByInstanceID(ctx context.Context, instanceID int64) ([]*entity.InstanceStep, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `
		SELECT id, instance_id, template_step_id, step_name, step_order, status,
			assigned_to, started_at, completed_at, completed_by, comments
		FROM instance_steps
		WHERE instance_id = ?
		ORDER BY step_order ASC
	`, instanceID)
	if err != nil {
		r.logger.Error("Failed to list steps", zap.Int64("instance_id", instanceID), zap.Error(err))
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.InstanceStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// Start moves a step from Pending to InProgress. Returns false when the
// step was not pending.
func (r *StepRepository) Start(ctx context.Context, stepID int64, startedAt time.Time) (bool, error) {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE instance_steps
		SET status = ?, started_at = ?
		WHERE id = ? AND status = ?
	`,
		workflow.StepInProgress.String(),
		startedAt,
		stepID,
		workflow.StepPending.String(),
	)
	if err != nil {
		r.logger.Error("Failed to start step", zap.Int64("step_id", stepID), zap.Error(err))
		return false, fmt.Errorf("failed to start step: %w", err)
	}
	return oneRowAffected(result)
}

// Finish moves a step from InProgress to Completed or Skipped. Returns
// false when the step was not in progress, meaning a concurrent transition
// already finished it.
func (r *StepRepository) Finish(ctx context.Context, stepID int64, status workflow.StepStatus, completedBy, comment string, completedAt time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("finish requires a terminal status, got %q", status.String())
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE instance_steps
		SET status = ?, completed_at = ?, completed_by = ?, comments = ?
		WHERE id = ? AND status = ?
	`,
		status.String(),
		completedAt,
		completedBy,
		nullString(comment),
		stepID,
		workflow.StepInProgress.String(),
	)
	if err != nil {
		r.logger.Error("Failed to finish step", zap.Int64("step_id", stepID), zap.Error(err))
		return false, fmt.Errorf("failed to finish step: %w", err)
	}
	return oneRowAffected(result)
}

// ListAssigned retrieves the task projection for steps assigned to a user
// in the given status, oldest started first
func (r *StepRepository) ListAssigned(ctx context.Context, userID string, status workflow.StepStatus, limit, offset int) ([]*entity.Task, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `
		SELECT s.id, s.instance_id, t.name, s.step_name, s.step_order, s.status,
			s.assigned_to, s.started_at, s.comments
		FROM instance_steps s
		JOIN workflow_instances i ON i.id = s.instance_id
		JOIN workflow_templates t ON t.id = i.template_id
		WHERE s.assigned_to = ? AND s.status = ?
		ORDER BY s.started_at ASC, s.id ASC
		LIMIT ? OFFSET ?
	`, userID, status.String(), limit, offset)
	if err != nil {
		r.logger.Error("Failed to list assigned steps", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.Task
	for rows.Next() {
		var task entity.Task
		var taskStatus string
		var assignedTo, comments sql.NullString
		var startedAt sql.NullTime

		err := rows.Scan(
			&task.ID,
			&task.InstanceID,
			&task.TemplateName,
			&task.StepName,
			&task.Order,
			&taskStatus,
			&assignedTo,
			&startedAt,
			&comments,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task.Status = workflow.StepStatus(taskStatus)
		task.AssignedTo = assignedTo.String
		task.Comments = comments.String
		if startedAt.Valid {
			task.StartedAt = &startedAt.Time
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStep(row rowScanner) (*entity.InstanceStep, error) {
	var step entity.InstanceStep
	var status string
	var assignedTo, completedBy, comments sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&step.ID,
		&step.InstanceID,
		&step.TemplateStepID,
		&step.StepName,
		&step.Order,
		&status,
		&assignedTo,
		&startedAt,
		&completedAt,
		&completedBy,
		&comments,
	)
	if err != nil {
		return nil, err
	}

	step.Status = workflow.StepStatus(status)
	step.AssignedTo = assignedTo.String
	step.CompletedBy = completedBy.String
	step.Comments = comments.String
	if startedAt.Valid {
		step.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		step.CompletedAt = &completedAt.Time
	}
	return &step, nil
}

func oneRowAffected(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// Verify interface compliance
var _ port.StepRepository = (*StepRepository)(nil)
