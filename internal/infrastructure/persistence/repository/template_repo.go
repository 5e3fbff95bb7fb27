package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/infrastructure/persistence/sqlite"
)

// TemplateRepository implements port.TemplateRepository
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) port.TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a template together with its steps
func (r *TemplateRepository) Create(ctx context.Context, template *entity.WorkflowTemplate) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	result, err := ex.ExecContext(ctx, `
		INSERT INTO workflow_templates (name, description, created_by, created_at)
		VALUES (?, ?, ?, ?)
	`, template.Name, template.Description, template.CreatedBy, template.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create template", zap.Error(err))
		return fmt.Errorf("failed to create template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	template.ID = id

	if err := r.insertSteps(ctx, ex, template); err != nil {
		return err
	}
	return nil
}

// GetByID retrieves a template with its steps ordered by step order
func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowTemplate, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	var template entity.WorkflowTemplate
	err := ex.QueryRowContext(ctx, `
		SELECT id, name, description, created_by, created_at
		FROM workflow_templates
		WHERE id = ?
	`, id).Scan(
		&template.ID,
		&template.Name,
		&template.Description,
		&template.CreatedBy,
		&template.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get template by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	steps, err := r.loadSteps(ctx, ex, template.ID)
	if err != nil {
		return nil, err
	}
	template.Steps = steps

	return &template, nil
}

// List retrieves all templates with their steps
func (r *TemplateRepository) List(ctx context.Context) ([]*entity.WorkflowTemplate, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := ex.QueryContext(ctx, `
		SELECT id, name, description, created_by, created_at
		FROM workflow_templates
		ORDER BY created_at DESC
	`)
	if err != nil {
		r.logger.Error("Failed to list templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*entity.WorkflowTemplate
	for rows.Next() {
		var template entity.WorkflowTemplate
		err := rows.Scan(
			&template.ID,
			&template.Name,
			&template.Description,
			&template.CreatedBy,
			&template.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, &template)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, template := range templates {
		steps, err := r.loadSteps(ctx, ex, template.ID)
		if err != nil {
			return nil, err
		}
		template.Steps = steps
	}
	return templates, nil
}

// Update replaces a template's name, description and steps
func (r *TemplateRepository) Update(ctx context.Context, template *entity.WorkflowTemplate) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	_, err := ex.ExecContext(ctx, `
		UPDATE workflow_templates SET name = ?, description = ? WHERE id = ?
	`, template.Name, template.Description, template.ID)
	if err != nil {
		r.logger.Error("Failed to update template", zap.Int64("id", template.ID), zap.Error(err))
		return fmt.Errorf("failed to update template: %w", err)
	}

	_, err = ex.ExecContext(ctx, `DELETE FROM template_steps WHERE template_id = ?`, template.ID)
	if err != nil {
		return fmt.Errorf("failed to replace template steps: %w", err)
	}

	return r.insertSteps(ctx, ex, template)
}

// Delete removes a template and its steps
func (r *TemplateRepository) Delete(ctx context.Context, id int64) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	if _, err := ex.ExecContext(ctx, `DELETE FROM template_steps WHERE template_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete template steps: %w", err)
	}
	if _, err := ex.ExecContext(ctx, `DELETE FROM workflow_templates WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete template", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) insertSteps(ctx context.Context, ex sqlite.Executor, template *entity.WorkflowTemplate) error {
	for i := range template.Steps {
		step := &template.Steps[i]
		step.TemplateID = template.ID

		result, err := ex.ExecContext(ctx, `
			INSERT INTO template_steps (template_id, step_name, step_order, required_role)
			VALUES (?, ?, ?, ?)
		`, step.TemplateID, step.StepName, step.Order, nullString(step.RequiredRole))
		if err != nil {
			r.logger.Error("Failed to create template step", zap.String("step_name", step.StepName), zap.Error(err))
			return fmt.Errorf("failed to create template step: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		step.ID = id
	}
	return nil
}

func (r *TemplateRepository) loadSteps(ctx context.Context, ex sqlite.Executor, templateID int64) ([]entity.TemplateStep, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT id, template_id, step_name, step_order, required_role
		FROM template_steps
		WHERE template_id = ?
		ORDER BY step_order ASC
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template steps: %w", err)
	}
	defer rows.Close()

	var steps []entity.TemplateStep
	for rows.Next() {
		var step entity.TemplateStep
		var requiredRole sql.NullString
		err := rows.Scan(&step.ID, &step.TemplateID, &step.StepName, &step.Order, &requiredRole)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template step: %w", err)
		}
		step.RequiredRole = requiredRole.String
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// nullString maps "" to SQL NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Verify interface compliance
var _ port.TemplateRepository = (*TemplateRepository)(nil)
