package port

import (
	"context"
	"time"

	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// TemplateRepository defines persistence operations for WorkflowTemplate.
// Lookups return (nil, nil) when no row exists; callers decide whether
// absence is an error.
type TemplateRepository interface {
	// Create inserts a template together with its steps
	Create(ctx context.Context, template *entity.WorkflowTemplate) error

	// GetByID retrieves a template with its steps ordered by step order
	GetByID(ctx context.Context, id int64) (*entity.WorkflowTemplate, error)

	// List retrieves all templates with their steps
	List(ctx context.Context) ([]*entity.WorkflowTemplate, error)

	// Update replaces a template's name, description and steps
	Update(ctx context.Context, template *entity.WorkflowTemplate) error

	// Delete removes a template and its steps
	Delete(ctx context.Context, id int64) error
}

// InstanceRepository defines persistence operations for WorkflowInstance
type InstanceRepository interface {
	// Create inserts a new instance row
	Create(ctx context.Context, instance *entity.WorkflowInstance) error

	// GetByID retrieves an instance without its steps
	GetByID(ctx context.Context, id int64) (*entity.WorkflowInstance, error)

	// SetCurrentStep points the instance at a step, unconditionally.
	// Used during start, before the instance is visible to other callers.
	SetCurrentStep(ctx context.Context, instanceID int64, stepID *int64) error

	// AdvanceCurrentStep moves the current-step pointer from fromStepID to
	// toStepID and sets the instance status, but only if the pointer still
	// is fromStepID and the instance is still in progress. Returns false
	// without error when the guard fails, meaning a concurrent transition
	// already advanced the instance.
	AdvanceCurrentStep(ctx context.Context, instanceID, fromStepID int64, toStepID *int64, status workflow.InstanceStatus) (bool, error)

	// ListByUser retrieves instances created by the user or with any step
	// assigned to the user, newest first
	ListByUser(ctx context.Context, userID string) ([]*entity.WorkflowInstance, error)

	// CountByTemplateID returns how many instances reference a template
	CountByTemplateID(ctx context.Context, templateID int64) (int, error)
}

// StepRepository defines persistence operations for InstanceStep.
// The guarded mutations (Start, Finish) return false when the step was not
// in the expected state, so a lost race never double-applies.
type StepRepository interface {
	// Create inserts an instance step
	Create(ctx context.Context, step *entity.InstanceStep) error

	// GetByID retrieves a step by its id
	GetByID(ctx context.Context, id int64) (*entity.InstanceStep, error)

	// ListByInstanceID retrieves the steps of an instance ordered by step order
	ListByInstanceID(ctx context.Context, instanceID int64) ([]*entity.InstanceStep, error)

	// Start moves a step from Pending to InProgress
	Start(ctx context.Context, stepID int64, startedAt time.Time) (bool, error)

	// Finish moves a step from InProgress to Completed or Skipped,
	// recording who completed it, when, and any comment
	Finish(ctx context.Context, stepID int64, status workflow.StepStatus, completedBy, comment string, completedAt time.Time) (bool, error)

	// ListAssigned retrieves the task projection for steps assigned to a
	// user in the given status, oldest started first, paginated
	ListAssigned(ctx context.Context, userID string, status workflow.StepStatus, limit, offset int) ([]*entity.Task, error)
}

// HistoryRepository defines persistence operations for HistoryRecord.
// Records are append-only; there is no update or delete.
type HistoryRepository interface {
	// Create appends a history record
	Create(ctx context.Context, record *entity.HistoryRecord) error

	// ListByInstanceID retrieves an instance's history ordered by
	// timestamp ascending, insertion sequence breaking ties
	ListByInstanceID(ctx context.Context, instanceID int64) ([]*entity.HistoryRecord, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
