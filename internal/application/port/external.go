package port

import "context"

// RoleResolver resolves the set of roles a user holds. It is the engine's
// only dependency on the identity system.
//
// GetRoles fails with workflow.ErrNotFound when the user id has no user
// record. Authorization checks treat an unknown user as holding no roles;
// instance creation treats it as a hard failure.
type RoleResolver interface {
	GetRoles(ctx context.Context, userID string) ([]string, error)
}
