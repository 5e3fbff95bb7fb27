package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// InstanceEngine is the workflow instance state machine. It creates running
// instances from templates and advances them one atomic transition at a
// time. At most one transition can succeed per instance per current step;
// a caller that loses a concurrent race gets workflow.ErrInvalidState.
type InstanceEngine interface {
	Start(ctx context.Context, req StartRequest) (int64, error)
	Act(ctx context.Context, instanceID int64, req ActRequest, actingUserID string) (*TransitionResult, error)
	GetInstance(ctx context.Context, id int64) (*InstanceView, error)
	ListMyInstances(ctx context.Context, userID string) ([]*InstanceView, error)
}

type instanceEngine struct {
	templateRepo port.TemplateRepository
	instanceRepo port.InstanceRepository
	stepRepo     port.StepRepository
	historyRepo  port.HistoryRepository
	roles        port.RoleResolver
	txManager    port.TransactionManager
	logger       Logger
}

// NewInstanceEngine creates a new InstanceEngine
func NewInstanceEngine(
	templateRepo port.TemplateRepository,
	instanceRepo port.InstanceRepository,
	stepRepo port.StepRepository,
	historyRepo port.HistoryRepository,
	roles port.RoleResolver,
	txManager port.TransactionManager,
	logger Logger,
) InstanceEngine {
	return &instanceEngine{
		templateRepo: templateRepo,
		instanceRepo: instanceRepo,
		stepRepo:     stepRepo,
		historyRepo:  historyRepo,
		roles:        roles,
		txManager:    txManager,
		logger:       logger,
	}
}

// Start creates a new instance from a template. One InstanceStep is created
// per template step; the lowest-ordered step becomes the current step. The
// first step is auto-assigned to the creator when the creator may act on it.
// Everything, including the Submitted history record, commits atomically.
func (e *instanceEngine) Start(ctx context.Context, req StartRequest) (int64, error) {
	template, err := e.templateRepo.GetByID(ctx, req.TemplateID)
	if err != nil {
		return 0, fmt.Errorf("load template: %w", err)
	}
	if template == nil {
		return 0, fmt.Errorf("%w: workflow template %d", workflow.ErrNotFound, req.TemplateID)
	}
	if err := template.Validate(); err != nil {
		return 0, err
	}

	creatorRoles, err := e.roles.GetRoles(ctx, req.CreatedBy)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			return 0, fmt.Errorf("%w: user %q", workflow.ErrNotFound, req.CreatedBy)
		}
		return 0, fmt.Errorf("resolve creator roles: %w", err)
	}

	now := time.Now().UTC()
	instance := &entity.WorkflowInstance{
		TemplateID: template.ID,
		CreatedBy:  req.CreatedBy,
		CreatedAt:  now,
		Status:     workflow.InstanceInProgress,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.instanceRepo.Create(txCtx, instance); err != nil {
			return fmt.Errorf("create instance: %w", err)
		}

		var firstStepID int64
		for i, templateStep := range template.Steps {
			step := &entity.InstanceStep{
				InstanceID:     instance.ID,
				TemplateStepID: templateStep.ID,
				StepName:       templateStep.StepName,
				Order:          templateStep.Order,
				Status:         workflow.StepPending,
			}
			if i == 0 {
				step.Status = workflow.StepInProgress
				step.StartedAt = &now
				if canAct(creatorRoles, templateStep.RequiredRole) {
					step.AssignedTo = req.CreatedBy
				}
			}
			if err := e.stepRepo.Create(txCtx, step); err != nil {
				return fmt.Errorf("create step %q: %w", step.StepName, err)
			}
			if i == 0 {
				firstStepID = step.ID
			}
		}

		if err := e.instanceRepo.SetCurrentStep(txCtx, instance.ID, &firstStepID); err != nil {
			return fmt.Errorf("set current step: %w", err)
		}
		instance.CurrentStepID = &firstStepID

		record := &entity.HistoryRecord{
			InstanceID:   instance.ID,
			Action:       entity.HistorySubmitted,
			ActingUserID: req.CreatedBy,
			Comment:      req.Comment,
			Timestamp:    now,
		}
		if err := e.historyRepo.Create(txCtx, record); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to start instance", "error", err, "template_id", req.TemplateID)
		return 0, err
	}

	e.logger.Info("Instance started", "id", instance.ID, "template_id", template.ID, "created_by", req.CreatedBy)
	return instance.ID, nil
}

// Act applies one decision to the instance's current step as a single
// atomic transition. Approve and Complete finish the current step and move
// to the next-ordered step, completing the instance when none remains.
// Reject skips the current step and cancels the instance. Any failure
// leaves the instance unchanged.
func (e *instanceEngine) Act(ctx context.Context, instanceID int64, req ActRequest, actingUserID string) (*TransitionResult, error) {
	switch req.Action {
	case workflow.ActionApprove, workflow.ActionComplete, workflow.ActionReject:
	default:
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidAction, req.Action)
	}

	var result *TransitionResult
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		instance, err := e.instanceRepo.GetByID(txCtx, instanceID)
		if err != nil {
			return fmt.Errorf("load instance: %w", err)
		}
		if instance == nil {
			return fmt.Errorf("%w: workflow instance %d", workflow.ErrNotFound, instanceID)
		}
		if instance.Status != workflow.InstanceInProgress {
			return fmt.Errorf("%w: instance is not active", workflow.ErrInvalidState)
		}

		steps, err := e.stepRepo.ListByInstanceID(txCtx, instanceID)
		if err != nil {
			return fmt.Errorf("load steps: %w", err)
		}
		instance.Steps = steps

		current := instance.CurrentStep()
		if current == nil {
			return fmt.Errorf("%w: current step not found", workflow.ErrInvalidState)
		}
		if req.StepID != 0 && req.StepID != current.ID {
			return fmt.Errorf("%w: step is no longer current", workflow.ErrInvalidState)
		}

		template, err := e.templateRepo.GetByID(txCtx, instance.TemplateID)
		if err != nil {
			return fmt.Errorf("load template: %w", err)
		}
		if template == nil {
			return fmt.Errorf("%w: template step not found", workflow.ErrInvalidState)
		}
		templateStep := template.StepByID(current.TemplateStepID)
		if templateStep == nil {
			return fmt.Errorf("%w: template step not found", workflow.ErrInvalidState)
		}

		actorRoles, err := e.roles.GetRoles(txCtx, actingUserID)
		if err != nil && !errors.Is(err, workflow.ErrNotFound) {
			return fmt.Errorf("resolve actor roles: %w", err)
		}
		if !canAct(actorRoles, templateStep.RequiredRole) {
			return fmt.Errorf("%w: user does not have permission for this step", workflow.ErrNotAuthorized)
		}

		now := time.Now().UTC()
		if req.Action.Advances() {
			result, err = e.advance(txCtx, instance, current, actingUserID, req.Comment, now)
			return err
		}
		result, err = e.reject(txCtx, instance, current, actingUserID, req.Comment, now)
		return err
	})
	if err != nil {
		e.logger.Error("Action failed", "error", err, "instance_id", instanceID, "action", req.Action.String(), "user_id", actingUserID)
		return nil, err
	}

	e.logger.Info("Action applied", "instance_id", instanceID, "action", req.Action.String(), "user_id", actingUserID, "completed", result.InstanceCompleted)
	return result, nil
}

// advance completes the current step and either activates the next step or
// completes the instance. Runs inside the caller's transaction.
func (e *instanceEngine) advance(ctx context.Context, instance *entity.WorkflowInstance, current *entity.InstanceStep, actingUserID, comment string, now time.Time) (*TransitionResult, error) {
	ok, err := e.stepRepo.Finish(ctx, current.ID, workflow.StepCompleted, actingUserID, comment, now)
	if err != nil {
		return nil, fmt.Errorf("complete step: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: step already processed", workflow.ErrInvalidState)
	}

	next := instance.NextStepAfter(current.Order)
	if next == nil {
		// Last step by order: the whole instance is done.
		ok, err = e.instanceRepo.AdvanceCurrentStep(ctx, instance.ID, current.ID, nil, workflow.InstanceCompleted)
		if err != nil {
			return nil, fmt.Errorf("complete instance: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: instance already advanced", workflow.ErrInvalidState)
		}
		if err := e.appendHistory(ctx, instance.ID, &current.ID, entity.HistoryCompleted, actingUserID, comment, now); err != nil {
			return nil, err
		}
		return &TransitionResult{
			Success:           true,
			Message:           "workflow completed successfully",
			InstanceCompleted: true,
		}, nil
	}

	ok, err = e.stepRepo.Start(ctx, next.ID, now)
	if err != nil {
		return nil, fmt.Errorf("start next step: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: next step already started", workflow.ErrInvalidState)
	}
	ok, err = e.instanceRepo.AdvanceCurrentStep(ctx, instance.ID, current.ID, &next.ID, workflow.InstanceInProgress)
	if err != nil {
		return nil, fmt.Errorf("advance instance: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: instance already advanced", workflow.ErrInvalidState)
	}
	if err := e.appendHistory(ctx, instance.ID, &current.ID, entity.HistoryApproved, actingUserID, comment, now); err != nil {
		return nil, err
	}

	// The next step surfaces unassigned for manual claim; auto-assignment
	// happens only at instance start.
	return &TransitionResult{
		Success:      true,
		Message:      "step completed, moved to next step",
		NextStepName: next.StepName,
	}, nil
}

// reject skips the current step and cancels the instance. Runs inside the
// caller's transaction.
func (e *instanceEngine) reject(ctx context.Context, instance *entity.WorkflowInstance, current *entity.InstanceStep, actingUserID, comment string, now time.Time) (*TransitionResult, error) {
	ok, err := e.stepRepo.Finish(ctx, current.ID, workflow.StepSkipped, actingUserID, comment, now)
	if err != nil {
		return nil, fmt.Errorf("skip step: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: step already processed", workflow.ErrInvalidState)
	}
	ok, err = e.instanceRepo.AdvanceCurrentStep(ctx, instance.ID, current.ID, nil, workflow.InstanceCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel instance: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: instance already advanced", workflow.ErrInvalidState)
	}
	if err := e.appendHistory(ctx, instance.ID, &current.ID, entity.HistoryRejected, actingUserID, comment, now); err != nil {
		return nil, err
	}
	return &TransitionResult{
		Success: true,
		Message: "workflow rejected and cancelled",
	}, nil
}

func (e *instanceEngine) appendHistory(ctx context.Context, instanceID int64, stepID *int64, action entity.HistoryAction, actingUserID, comment string, now time.Time) error {
	record := &entity.HistoryRecord{
		InstanceID:   instanceID,
		StepID:       stepID,
		Action:       action,
		ActingUserID: actingUserID,
		Comment:      comment,
		Timestamp:    now,
	}
	if err := e.historyRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}

// GetInstance retrieves an instance with its steps, template name and
// current step name
func (e *instanceEngine) GetInstance(ctx context.Context, id int64) (*InstanceView, error) {
	instance, err := e.instanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: workflow instance %d", workflow.ErrNotFound, id)
	}
	steps, err := e.stepRepo.ListByInstanceID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	instance.Steps = steps

	view := e.toView(ctx, instance)
	view.Steps = steps
	return view, nil
}

// ListMyInstances retrieves the instances a user created or holds any step
// assignment on, newest first
func (e *instanceEngine) ListMyInstances(ctx context.Context, userID string) ([]*InstanceView, error) {
	instances, err := e.instanceRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}

	views := make([]*InstanceView, 0, len(instances))
	for _, instance := range instances {
		steps, err := e.stepRepo.ListByInstanceID(ctx, instance.ID)
		if err != nil {
			return nil, fmt.Errorf("load steps: %w", err)
		}
		instance.Steps = steps
		views = append(views, e.toView(ctx, instance))
	}
	return views, nil
}

func (e *instanceEngine) toView(ctx context.Context, instance *entity.WorkflowInstance) *InstanceView {
	view := &InstanceView{
		ID:            instance.ID,
		TemplateID:    instance.TemplateID,
		CurrentStepID: instance.CurrentStepID,
		CreatedBy:     instance.CreatedBy,
		CreatedAt:     instance.CreatedAt,
		Status:        instance.Status,
	}
	if template, err := e.templateRepo.GetByID(ctx, instance.TemplateID); err == nil && template != nil {
		view.TemplateName = template.Name
	}
	if current := instance.CurrentStep(); current != nil {
		view.CurrentStepName = current.StepName
	}
	return view
}

var _ InstanceEngine = (*instanceEngine)(nil)
