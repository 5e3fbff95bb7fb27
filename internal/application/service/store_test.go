package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// fakeStore is an in-memory stand-in for the persistence layer. The guarded
// mutations behave like their SQL counterparts: they check the expected
// state under the store lock and report false instead of double-applying.
// Concurrent callers must go through the transaction manager, which
// serializes whole transitions the way the database does.
type fakeStore struct {
	mu        sync.Mutex
	templates map[int64]*entity.WorkflowTemplate
	instances map[int64]*entity.WorkflowInstance
	steps     map[int64]*entity.InstanceStep
	history   []*entity.HistoryRecord
	users     map[string][]string
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates: make(map[int64]*entity.WorkflowTemplate),
		instances: make(map[int64]*entity.WorkflowInstance),
		steps:     make(map[int64]*entity.InstanceStep),
		users:     make(map[string][]string),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addUser(id string, roles ...string) {
	f.users[id] = roles
}

func (f *fakeStore) engine() InstanceEngine {
	return NewInstanceEngine(
		fakeTemplateRepo{f},
		fakeInstanceRepo{f},
		fakeStepRepo{f},
		fakeHistoryRepo{f},
		fakeRoles{f},
		fakeTx{f},
		testLogger{},
	)
}

type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}

type fakeTx struct{ s *fakeStore }

func (t fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return fn(ctx)
}

type fakeRoles struct{ s *fakeStore }

func (r fakeRoles) GetRoles(ctx context.Context, userID string) ([]string, error) {
	roles, ok := r.s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", workflow.ErrNotFound, userID)
	}
	return roles, nil
}

type fakeTemplateRepo struct{ s *fakeStore }

func (r fakeTemplateRepo) Create(ctx context.Context, template *entity.WorkflowTemplate) error {
	template.ID = r.s.id()
	for i := range template.Steps {
		template.Steps[i].ID = r.s.id()
		template.Steps[i].TemplateID = template.ID
	}
	stored := *template
	stored.Steps = append([]entity.TemplateStep(nil), template.Steps...)
	r.s.templates[template.ID] = &stored
	return nil
}

func (r fakeTemplateRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowTemplate, error) {
	stored, ok := r.s.templates[id]
	if !ok {
		return nil, nil
	}
	out := *stored
	out.Steps = append([]entity.TemplateStep(nil), stored.Steps...)
	return &out, nil
}

func (r fakeTemplateRepo) List(ctx context.Context) ([]*entity.WorkflowTemplate, error) {
	var out []*entity.WorkflowTemplate
	for id := range r.s.templates {
		t, _ := r.GetByID(ctx, id)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeTemplateRepo) Update(ctx context.Context, template *entity.WorkflowTemplate) error {
	existing, ok := r.s.templates[template.ID]
	if !ok {
		return fmt.Errorf("template %d does not exist", template.ID)
	}
	for i := range template.Steps {
		template.Steps[i].ID = r.s.id()
		template.Steps[i].TemplateID = template.ID
	}
	stored := *template
	stored.CreatedBy = existing.CreatedBy
	stored.CreatedAt = existing.CreatedAt
	stored.Steps = append([]entity.TemplateStep(nil), template.Steps...)
	r.s.templates[template.ID] = &stored
	return nil
}

func (r fakeTemplateRepo) Delete(ctx context.Context, id int64) error {
	delete(r.s.templates, id)
	return nil
}

type fakeInstanceRepo struct{ s *fakeStore }

func (r fakeInstanceRepo) Create(ctx context.Context, instance *entity.WorkflowInstance) error {
	instance.ID = r.s.id()
	stored := *instance
	stored.Steps = nil
	r.s.instances[instance.ID] = &stored
	return nil
}

func (r fakeInstanceRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowInstance, error) {
	stored, ok := r.s.instances[id]
	if !ok {
		return nil, nil
	}
	out := *stored
	if stored.CurrentStepID != nil {
		current := *stored.CurrentStepID
		out.CurrentStepID = &current
	}
	return &out, nil
}

func (r fakeInstanceRepo) SetCurrentStep(ctx context.Context, instanceID int64, stepID *int64) error {
	stored, ok := r.s.instances[instanceID]
	if !ok {
		return fmt.Errorf("instance %d does not exist", instanceID)
	}
	stored.CurrentStepID = copyID(stepID)
	return nil
}

func (r fakeInstanceRepo) AdvanceCurrentStep(ctx context.Context, instanceID, fromStepID int64, toStepID *int64, status workflow.InstanceStatus) (bool, error) {
	stored, ok := r.s.instances[instanceID]
	if !ok {
		return false, nil
	}
	if stored.Status != workflow.InstanceInProgress {
		return false, nil
	}
	if stored.CurrentStepID == nil || *stored.CurrentStepID != fromStepID {
		return false, nil
	}
	stored.CurrentStepID = copyID(toStepID)
	stored.Status = status
	return true, nil
}

func (r fakeInstanceRepo) ListByUser(ctx context.Context, userID string) ([]*entity.WorkflowInstance, error) {
	assigned := make(map[int64]bool)
	for _, step := range r.s.steps {
		if step.AssignedTo == userID {
			assigned[step.InstanceID] = true
		}
	}
	var out []*entity.WorkflowInstance
	for id, stored := range r.s.instances {
		if stored.CreatedBy == userID || assigned[id] {
			inst, _ := r.GetByID(ctx, id)
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r fakeInstanceRepo) CountByTemplateID(ctx context.Context, templateID int64) (int, error) {
	count := 0
	for _, stored := range r.s.instances {
		if stored.TemplateID == templateID {
			count++
		}
	}
	return count, nil
}

type fakeStepRepo struct{ s *fakeStore }

func (r fakeStepRepo) Create(ctx context.Context, step *entity.InstanceStep) error {
	step.ID = r.s.id()
	stored := *step
	r.s.steps[step.ID] = &stored
	return nil
}

func (r fakeStepRepo) GetByID(ctx context.Context, id int64) (*entity.InstanceStep, error) {
	stored, ok := r.s.steps[id]
	if !ok {
		return nil, nil
	}
	out := *stored
	return &out, nil
}

func (r fakeStepRepo) ListByInstanceID(ctx context.Context, instanceID int64) ([]*entity.InstanceStep, error) {
	var out []*entity.InstanceStep
	for _, stored := range r.s.steps {
		if stored.InstanceID == instanceID {
			copied := *stored
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r fakeStepRepo) Start(ctx context.Context, stepID int64, startedAt time.Time) (bool, error) {
	stored, ok := r.s.steps[stepID]
	if !ok || stored.Status != workflow.StepPending {
		return false, nil
	}
	stored.Status = workflow.StepInProgress
	t := startedAt
	stored.StartedAt = &t
	return true, nil
}

func (r fakeStepRepo) Finish(ctx context.Context, stepID int64, status workflow.StepStatus, completedBy, comment string, completedAt time.Time) (bool, error) {
	stored, ok := r.s.steps[stepID]
	if !ok || stored.Status != workflow.StepInProgress {
		return false, nil
	}
	stored.Status = status
	stored.CompletedBy = completedBy
	stored.Comments = comment
	t := completedAt
	stored.CompletedAt = &t
	return true, nil
}

func (r fakeStepRepo) ListAssigned(ctx context.Context, userID string, status workflow.StepStatus, limit, offset int) ([]*entity.Task, error) {
	var matched []*entity.InstanceStep
	for _, stored := range r.s.steps {
		if stored.AssignedTo == userID && stored.Status == status {
			copied := *stored
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}

	var tasks []*entity.Task
	for _, step := range matched {
		task := &entity.Task{
			ID:         step.ID,
			InstanceID: step.InstanceID,
			StepName:   step.StepName,
			Order:      step.Order,
			Status:     step.Status,
			AssignedTo: step.AssignedTo,
			StartedAt:  step.StartedAt,
			Comments:   step.Comments,
		}
		if inst, ok := r.s.instances[step.InstanceID]; ok {
			if tpl, ok := r.s.templates[inst.TemplateID]; ok {
				task.TemplateName = tpl.Name
			}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

type fakeHistoryRepo struct{ s *fakeStore }

func (r fakeHistoryRepo) Create(ctx context.Context, record *entity.HistoryRecord) error {
	record.ID = r.s.id()
	stored := *record
	stored.StepID = copyID(record.StepID)
	r.s.history = append(r.s.history, &stored)
	return nil
}

func (r fakeHistoryRepo) ListByInstanceID(ctx context.Context, instanceID int64) ([]*entity.HistoryRecord, error) {
	var out []*entity.HistoryRecord
	for _, stored := range r.s.history {
		if stored.InstanceID == instanceID {
			copied := *stored
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

var (
	_ port.TemplateRepository = fakeTemplateRepo{}
	_ port.InstanceRepository = fakeInstanceRepo{}
	_ port.StepRepository     = fakeStepRepo{}
	_ port.HistoryRepository  = fakeHistoryRepo{}
	_ port.RoleResolver       = fakeRoles{}
	_ port.TransactionManager = fakeTx{}
)
