package service

import (
	"time"

	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// StartRequest carries everything needed to start a workflow instance
type StartRequest struct {
	TemplateID int64
	CreatedBy  string
	Comment    string
}

// ActRequest carries a decision on an instance's current step.
// StepID is the step the caller believes is current; when non-zero and the
// instance has already moved past it, the action fails with invalid state
// instead of silently applying to a different step.
type ActRequest struct {
	Action  workflow.Action
	StepID  int64
	Comment string
}

// TransitionResult describes the outcome of a successful transition
type TransitionResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	NextStepName      string `json:"next_step_name,omitempty"`
	NextAssignee      string `json:"next_assignee,omitempty"`
	InstanceCompleted bool   `json:"instance_completed"`
}

// InstanceView is the read model of an instance: the stored instance joined
// with its template name and the name of the current step
type InstanceView struct {
	ID              int64                   `json:"id"`
	TemplateID      int64                   `json:"template_id"`
	TemplateName    string                  `json:"template_name"`
	CurrentStepID   *int64                  `json:"current_step_id,omitempty"`
	CurrentStepName string                  `json:"current_step_name,omitempty"`
	CreatedBy       string                  `json:"created_by"`
	CreatedAt       time.Time               `json:"created_at"`
	Status          workflow.InstanceStatus `json:"status"`
	Steps           []*entity.InstanceStep  `json:"steps,omitempty"`
}

// TaskPage is one page of a user's task list
type TaskPage struct {
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Count    int            `json:"count"`
	Tasks    []*entity.Task `json:"tasks"`
}
