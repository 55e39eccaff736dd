package auth

// Actor is the authenticated caller of a domain operation. EmployeeID links a
// user account to its employee record and may be empty for pure
// administrators.
type Actor struct {
	UserID     string `json:"id"`
	Role       string `json:"role"`
	EmployeeID string `json:"employeeId,omitempty"`
	Email      string `json:"email,omitempty"`
}

// SystemActor is used by background jobs and the admin CLI.
func SystemActor() Actor {
	return Actor{UserID: "system", Role: RoleAdmin}
}

func (a Actor) Authenticated() bool {
	return a.UserID != "" && ValidRole(a.Role)
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsLeader() bool {
	return a.Role == RoleLeader
}

func (a Actor) IsEmployee() bool {
	return a.Role == RoleEmployee
}

func (a Actor) Can(permission string) bool {
	return a.Authenticated() && RoleHas(a.Role, permission)
}

// Require is the single gate every service operation passes before touching
// state.
func (a Actor) Require(permission string) error {
	if !a.Authenticated() {
		return ErrUnauthenticated
	}
	if !RoleHas(a.Role, permission) {
		return ErrForbidden.WithMessage("role %s lacks %s", a.Role, permission)
	}
	return nil
}

// Owns reports whether the actor is the employee identified by employeeID.
func (a Actor) Owns(employeeID string) bool {
	return a.EmployeeID != "" && a.EmployeeID == employeeID
}
