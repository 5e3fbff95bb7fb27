package workflow

import "errors"

var (
	// ErrNotFound is returned when a template, instance, step or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidTemplate is returned when a template cannot produce an instance
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrInvalidState is returned when an operation targets an instance or step
	// that is not in the state the operation requires, including stale
	// transition attempts that lost a concurrent race
	ErrInvalidState = errors.New("invalid state")

	// ErrNotAuthorized is returned when the acting user lacks the required role
	// or is not the assignee of the targeted step
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidAction is returned when an action token is not recognized
	ErrInvalidAction = errors.New("invalid action")
)
