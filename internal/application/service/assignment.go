package service

// canAct is the assignment policy: a user may act on a step when the step
// requires no role, or when the user holds the required role. The same rule
// gates authorization at act time and auto-assignment at start time.
func canAct(roles []string, requiredRole string) bool {
	if requiredRole == "" {
		return true
	}
	for _, role := range roles {
		if role == requiredRole {
			return true
		}
	}
	return false
}
