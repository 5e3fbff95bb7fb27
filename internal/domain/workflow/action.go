package workflow

import "strings"

// Action represents a user decision on the current step of an instance.
// Action tokens are parsed once at the boundary; everything downstream
// works with the closed set below.
type Action string

const (
	ActionApprove  Action = "APPROVE"
	ActionComplete Action = "COMPLETE"
	ActionReject   Action = "REJECT"
)

// ParseAction converts a raw action token into an Action.
// Matching is case-insensitive. Unknown tokens fail with ErrInvalidAction.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve":
		return ActionApprove, nil
	case "complete":
		return ActionComplete, nil
	case "reject":
		return ActionReject, nil
	default:
		return "", ErrInvalidAction
	}
}

// Advances returns true if the action completes the current step and
// moves the instance forward. Approve and Complete are treated identically.
func (a Action) Advances() bool {
	return a == ActionApprove || a == ActionComplete
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
