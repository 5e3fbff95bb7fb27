package entity

import (
	"time"

	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// WorkflowInstance represents one running execution of a template.
// While Status is InProgress, CurrentStepID points at the single step
// with status InProgress; it is nil once the instance is terminal.
type WorkflowInstance struct {
	ID            int64                   `json:"id"`
	TemplateID    int64                   `json:"template_id"`
	CreatedBy     string                  `json:"created_by"`
	CreatedAt     time.Time               `json:"created_at"`
	Status        workflow.InstanceStatus `json:"status"`
	CurrentStepID *int64                  `json:"current_step_id,omitempty"`
	Steps         []*InstanceStep         `json:"steps,omitempty"`
}

// InstanceStep is the per-instance, stateful copy of a template step.
// StepName is copied at instance-creation time so later template renames
// do not alter in-flight instances.
type InstanceStep struct {
	ID             int64               `json:"id"`
	InstanceID     int64               `json:"instance_id"`
	TemplateStepID int64               `json:"template_step_id"`
	StepName       string              `json:"step_name"`
	Order          int                 `json:"order"`
	Status         workflow.StepStatus `json:"status"`
	AssignedTo     string              `json:"assigned_to,omitempty"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	CompletedBy    string              `json:"completed_by,omitempty"`
	Comments       string              `json:"comments,omitempty"`
}

// CurrentStep returns the loaded step CurrentStepID points at, or nil.
// Steps must have been loaded for this to find anything.
func (i *WorkflowInstance) CurrentStep() *InstanceStep {
	if i.CurrentStepID == nil {
		return nil
	}
	for _, s := range i.Steps {
		if s.ID == *i.CurrentStepID {
			return s
		}
	}
	return nil
}

// NextStepAfter returns the loaded step with the smallest order strictly
// greater than the given order, or nil when the given step is last.
// Steps are stored ordered by Order, so the first match wins.
func (i *WorkflowInstance) NextStepAfter(order int) *InstanceStep {
	for _, s := range i.Steps {
		if s.Order > order {
			return s
		}
	}
	return nil
}
