package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/domain/workflow"
)

func newTemplateService(store *fakeStore) TemplateService {
	return NewTemplateService(fakeTemplateRepo{store}, fakeInstanceRepo{store}, fakeTx{store}, testLogger{})
}

func validTemplateRequest() TemplateRequest {
	return TemplateRequest{
		Name:      "Expense Approval",
		CreatedBy: "admin",
		Steps: []TemplateStepInput{
			{StepName: "Manager Review", Order: 1},
			{StepName: "Finance Approval", Order: 2, RequiredRole: "Finance"},
		},
	}
}

func TestTemplateService_Create(t *testing.T) {
	store := newFakeStore()
	svc := newTemplateService(store)

	id, err := svc.Create(context.Background(), validTemplateRequest())
	require.NoError(t, err)
	assert.NotZero(t, id)

	template, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Expense Approval", template.Name)
	require.Len(t, template.Steps, 2)
	assert.Equal(t, "Finance", template.Steps[1].RequiredRole)
	assert.False(t, template.CreatedAt.IsZero())
}

func TestTemplateService_Create_Validation(t *testing.T) {
	tests := []struct {
		name  string
		steps []TemplateStepInput
	}{
		{name: "no steps", steps: nil},
		{
			name: "unnamed step",
			steps: []TemplateStepInput{
				{StepName: "", Order: 1},
			},
		},
		{
			name: "duplicate order",
			steps: []TemplateStepInput{
				{StepName: "A", Order: 1},
				{StepName: "B", Order: 1},
			},
		},
		{
			name: "decreasing order",
			steps: []TemplateStepInput{
				{StepName: "A", Order: 2},
				{StepName: "B", Order: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTemplateService(newFakeStore())
			req := validTemplateRequest()
			req.Steps = tt.steps

			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, workflow.ErrInvalidTemplate)
		})
	}
}

func TestTemplateService_GetByID_NotFound(t *testing.T) {
	svc := newTemplateService(newFakeStore())
	_, err := svc.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestTemplateService_Update(t *testing.T) {
	store := newFakeStore()
	svc := newTemplateService(store)

	id, err := svc.Create(context.Background(), validTemplateRequest())
	require.NoError(t, err)

	updated := validTemplateRequest()
	updated.Name = "Expense Approval v2"
	updated.Steps = append(updated.Steps, TemplateStepInput{StepName: "CEO Sign-off", Order: 3, RequiredRole: "CEO"})

	require.NoError(t, svc.Update(context.Background(), id, updated))

	template, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Expense Approval v2", template.Name)
	assert.Len(t, template.Steps, 3)

	err = svc.Update(context.Background(), 42, updated)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestTemplateService_Delete(t *testing.T) {
	store := newFakeStore()
	svc := newTemplateService(store)

	id, err := svc.Create(context.Background(), validTemplateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), id))

	_, err = svc.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	err = svc.Delete(context.Background(), id)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestTemplateService_ReferencedTemplateIsImmutable(t *testing.T) {
	store := newFakeStore()
	store.addUser("alice")
	svc := newTemplateService(store)

	id, err := svc.Create(context.Background(), validTemplateRequest())
	require.NoError(t, err)

	// One running instance pins the template.
	require.NoError(t, fakeInstanceRepo{store}.Create(context.Background(), &entity.WorkflowInstance{
		TemplateID: id,
		CreatedBy:  "alice",
		Status:     workflow.InstanceInProgress,
	}))

	err = svc.Update(context.Background(), id, validTemplateRequest())
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	err = svc.Delete(context.Background(), id)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	// Still present and unchanged.
	template, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Expense Approval", template.Name)
}
