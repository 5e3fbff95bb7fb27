package entity

import (
	"time"

	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// Task is a read-only projection of an instance step assigned to a user,
// joined with its parent instance and template name. Derived state only;
// acting on a task goes through the instance engine.
type Task struct {
	ID           int64               `json:"id"`
	InstanceID   int64               `json:"instance_id"`
	TemplateName string              `json:"template_name"`
	StepName     string              `json:"step_name"`
	Order        int                 `json:"order"`
	Status       workflow.StepStatus `json:"status"`
	AssignedTo   string              `json:"assigned_to"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	Comments     string              `json:"comments,omitempty"`
}
