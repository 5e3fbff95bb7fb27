package service

import (
	"context"
	"fmt"
	"time"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// TemplateStepInput describes one step of a template being created or updated
type TemplateStepInput struct {
	StepName     string
	Order        int
	RequiredRole string
}

// TemplateRequest carries a template definition from the caller
type TemplateRequest struct {
	Name        string
	Description string
	CreatedBy   string
	Steps       []TemplateStepInput
}

// TemplateService manages workflow templates. A template referenced by any
// instance is immutable: update and delete fail while instances exist.
type TemplateService interface {
	Create(ctx context.Context, req TemplateRequest) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.WorkflowTemplate, error)
	List(ctx context.Context) ([]*entity.WorkflowTemplate, error)
	Update(ctx context.Context, id int64, req TemplateRequest) error
	Delete(ctx context.Context, id int64) error
}

type templateService struct {
	templateRepo port.TemplateRepository
	instanceRepo port.InstanceRepository
	txManager    port.TransactionManager
	logger       Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(
	templateRepo port.TemplateRepository,
	instanceRepo port.InstanceRepository,
	txManager port.TransactionManager,
	logger Logger,
) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		instanceRepo: instanceRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

// Create validates and persists a new template with its steps
func (s *templateService) Create(ctx context.Context, req TemplateRequest) (int64, error) {
	template := s.toTemplate(req)
	template.CreatedAt = time.Now().UTC()

	if err := template.Validate(); err != nil {
		return 0, err
	}

	if err := s.templateRepo.Create(ctx, template); err != nil {
		s.logger.Error("Failed to create template", "error", err, "name", req.Name)
		return 0, fmt.Errorf("create template: %w", err)
	}

	s.logger.Info("Template created", "id", template.ID, "name", template.Name, "steps", len(template.Steps))
	return template.ID, nil
}

// GetByID retrieves a template with its steps
func (s *templateService) GetByID(ctx context.Context, id int64) (*entity.WorkflowTemplate, error) {
	template, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if template == nil {
		return nil, fmt.Errorf("%w: workflow template %d", workflow.ErrNotFound, id)
	}
	return template, nil
}

// List retrieves all templates
func (s *templateService) List(ctx context.Context) ([]*entity.WorkflowTemplate, error) {
	templates, err := s.templateRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// Update replaces a template's definition. Fails while any instance
// references the template.
func (s *templateService) Update(ctx context.Context, id int64, req TemplateRequest) error {
	template := s.toTemplate(req)
	template.ID = id

	if err := template.Validate(); err != nil {
		return err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.templateRepo.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("load template: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("%w: workflow template %d", workflow.ErrNotFound, id)
		}
		if err := s.ensureUnreferenced(txCtx, id); err != nil {
			return err
		}
		if err := s.templateRepo.Update(txCtx, template); err != nil {
			return fmt.Errorf("update template: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update template", "error", err, "id", id)
		return err
	}

	s.logger.Info("Template updated", "id", id, "name", template.Name)
	return nil
}

// Delete removes a template. Fails while any instance references it.
func (s *templateService) Delete(ctx context.Context, id int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.templateRepo.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("load template: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("%w: workflow template %d", workflow.ErrNotFound, id)
		}
		if err := s.ensureUnreferenced(txCtx, id); err != nil {
			return err
		}
		if err := s.templateRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("delete template: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete template", "error", err, "id", id)
		return err
	}

	s.logger.Info("Template deleted", "id", id)
	return nil
}

func (s *templateService) ensureUnreferenced(ctx context.Context, templateID int64) error {
	count, err := s.instanceRepo.CountByTemplateID(ctx, templateID)
	if err != nil {
		return fmt.Errorf("count instances: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: template has existing instances", workflow.ErrInvalidState)
	}
	return nil
}

func (s *templateService) toTemplate(req TemplateRequest) *entity.WorkflowTemplate {
	template := &entity.WorkflowTemplate{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
	}
	for _, step := range req.Steps {
		template.Steps = append(template.Steps, entity.TemplateStep{
			StepName:     step.StepName,
			Order:        step.Order,
			RequiredRole: step.RequiredRole,
		})
	}
	return template
}

var _ TemplateService = (*templateService)(nil)
