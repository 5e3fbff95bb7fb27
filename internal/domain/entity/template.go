package entity

import (
	"fmt"
	"time"

	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// WorkflowTemplate represents a reusable, ordered definition of workflow steps.
// A template referenced by any instance is immutable; services enforce this
// with an instance-existence check before update or delete.
type WorkflowTemplate struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	Steps       []TemplateStep `json:"steps"`
}

// TemplateStep represents a named stage within a template.
// RequiredRole is empty when anyone may act on the step.
type TemplateStep struct {
	ID           int64  `json:"id"`
	TemplateID   int64  `json:"template_id"`
	StepName     string `json:"step_name"`
	Order        int    `json:"order"`
	RequiredRole string `json:"required_role,omitempty"`
}

// Validate checks the structural invariants of a template: at least one
// step, and step orders strictly increasing.
func (t *WorkflowTemplate) Validate() error {
	if len(t.Steps) == 0 {
		return fmt.Errorf("%w: template has no steps", workflow.ErrInvalidTemplate)
	}
	for i, step := range t.Steps {
		if step.StepName == "" {
			return fmt.Errorf("%w: step %d has no name", workflow.ErrInvalidTemplate, i+1)
		}
		if i > 0 && step.Order <= t.Steps[i-1].Order {
			return fmt.Errorf("%w: step orders must be strictly increasing", workflow.ErrInvalidTemplate)
		}
	}
	return nil
}

// StepByID returns the template step with the given id, or nil
func (t *WorkflowTemplate) StepByID(id int64) *TemplateStep {
	for i := range t.Steps {
		if t.Steps[i].ID == id {
			return &t.Steps[i]
		}
	}
	return nil
}
