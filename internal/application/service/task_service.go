package service

import (
	"context"
	"fmt"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/workflow"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TaskService is the read projection of "steps currently assigned to a
// user" plus the convenience path ordinary users take to act on them.
type TaskService interface {
	// ListTasks returns one page of the user's tasks. With no status filter
	// it shows only actionable work (steps in progress), oldest first.
	ListTasks(ctx context.Context, userID string, statusFilter *workflow.StepStatus, page, pageSize int) (*TaskPage, error)

	// CompleteTask acts on a step by its id after checking it exists, is
	// assigned to the user, and is in progress. Delegates the actual
	// transition to the instance engine.
	CompleteTask(ctx context.Context, taskID int64, action workflow.Action, comment, userID string) (*TransitionResult, error)
}

type taskService struct {
	stepRepo port.StepRepository
	engine   InstanceEngine
	logger   Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(stepRepo port.StepRepository, engine InstanceEngine, logger Logger) TaskService {
	return &taskService{
		stepRepo: stepRepo,
		engine:   engine,
		logger:   logger,
	}
}

// ListTasks retrieves a paginated task list for a user
func (s *taskService) ListTasks(ctx context.Context, userID string, statusFilter *workflow.StepStatus, page, pageSize int) (*TaskPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	status := workflow.StepInProgress
	if statusFilter != nil {
		if !statusFilter.IsValid() {
			return nil, fmt.Errorf("%w: unknown step status %q", workflow.ErrInvalidAction, statusFilter.String())
		}
		status = *statusFilter
	}

	tasks, err := s.stepRepo.ListAssigned(ctx, userID, status, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error("Failed to list tasks", "error", err, "user_id", userID)
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return &TaskPage{
		Page:     page,
		PageSize: pageSize,
		Count:    len(tasks),
		Tasks:    tasks,
	}, nil
}

// CompleteTask acts on the task's parent instance on behalf of the assignee
func (s *taskService) CompleteTask(ctx context.Context, taskID int64, action workflow.Action, comment, userID string) (*TransitionResult, error) {
	step, err := s.stepRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if step == nil {
		return nil, fmt.Errorf("%w: task %d", workflow.ErrNotFound, taskID)
	}
	if step.AssignedTo != userID {
		return nil, fmt.Errorf("%w: task is not assigned to you", workflow.ErrNotAuthorized)
	}
	if step.Status != workflow.StepInProgress {
		return nil, fmt.Errorf("%w: task is not in progress", workflow.ErrInvalidState)
	}

	result, err := s.engine.Act(ctx, step.InstanceID, ActRequest{
		Action:  action,
		StepID:  step.ID,
		Comment: comment,
	}, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task completed", "task_id", taskID, "user_id", userID, "action", action.String())
	return result, nil
}

var _ TaskService = (*taskService)(nil)
