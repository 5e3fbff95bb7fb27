package workflow

// InstanceStatus represents the lifecycle state of a workflow instance
type InstanceStatus string

const (
	InstanceInProgress InstanceStatus = "IN_PROGRESS"
	InstanceCompleted  InstanceStatus = "COMPLETED"
	InstanceCancelled  InstanceStatus = "CANCELLED"
)

var validInstanceStatuses = map[InstanceStatus]bool{
	InstanceInProgress: true,
	InstanceCompleted:  true,
	InstanceCancelled:  true,
}

// IsTerminal returns true if the instance status allows no further transitions
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceCompleted || s == InstanceCancelled
}

// IsValid returns true if the status is a known instance status
func (s InstanceStatus) IsValid() bool {
	return validInstanceStatuses[s]
}

// String returns the string representation of the status
func (s InstanceStatus) String() string {
	return string(s)
}

// StepStatus represents the lifecycle state of a single instance step
type StepStatus string

const (
	StepPending    StepStatus = "PENDING"
	StepInProgress StepStatus = "IN_PROGRESS"
	StepCompleted  StepStatus = "COMPLETED"
	StepSkipped    StepStatus = "SKIPPED"
)

var validStepStatuses = map[StepStatus]bool{
	StepPending:    true,
	StepInProgress: true,
	StepCompleted:  true,
	StepSkipped:    true,
}

// Step lifecycle: Pending -> InProgress -> {Completed | Skipped}
var stepTransitions = map[StepStatus][]StepStatus{
	StepPending:    {StepInProgress},
	StepInProgress: {StepCompleted, StepSkipped},
}

// IsTerminal returns true if the step status allows no further transitions
func (s StepStatus) IsTerminal() bool {
	return s == StepCompleted || s == StepSkipped
}

// IsValid returns true if the status is a known step status
func (s StepStatus) IsValid() bool {
	return validStepStatuses[s]
}

// CanTransitionTo returns true if the step may move from s to next
func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	for _, allowed := range stepTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String returns the string representation of the status
func (s StepStatus) String() string {
	return string(s)
}
