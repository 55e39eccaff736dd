package auth

import "context"

const (
	RoleAdmin    = "admin"
	RoleLeader   = "leader"
	RoleEmployee = "employee"
)

const (
	PermCatalogRead          = "catalog.read"
	PermCatalogManage        = "catalog.manage"
	PermAuthorizationsRead   = "authorizations.read"
	PermAuthorizationsManage = "authorizations.manage"
	PermEvaluationsRead      = "evaluations.read"
	PermEvaluationsWrite     = "evaluations.write"
	PermEvaluationsComplete  = "evaluations.complete"
	PermCyclesRead           = "cycles.read"
	PermCyclesManage         = "cycles.manage"
	PermCycleStatusUpdate    = "cycle_status.update"
	PermAuditRead            = "audit.read"
	PermUsersManage          = "users.manage"
)

var DefaultPermissions = []string{
	PermCatalogRead,
	PermCatalogManage,
	PermAuthorizationsRead,
	PermAuthorizationsManage,
	PermEvaluationsRead,
	PermEvaluationsWrite,
	PermEvaluationsComplete,
	PermCyclesRead,
	PermCyclesManage,
	PermCycleStatusUpdate,
	PermAuditRead,
	PermUsersManage,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermCatalogRead,
		PermEvaluationsRead,
		PermCyclesRead,
		PermCycleStatusUpdate,
	},
	RoleLeader: {
		PermCatalogRead,
		PermAuthorizationsRead,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermEvaluationsComplete,
		PermCyclesRead,
		PermCycleStatusUpdate,
	},
	RoleAdmin: {
		PermCatalogRead,
		PermCatalogManage,
		PermAuthorizationsRead,
		PermAuthorizationsManage,
		PermEvaluationsRead,
		PermEvaluationsComplete,
		PermCyclesRead,
		PermCyclesManage,
		PermCycleStatusUpdate,
		PermAuditRead,
		PermUsersManage,
	},
}

var rolePermissionSet = buildPermissionSet()

func buildPermissionSet() map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(RolePermissions))
	for role, perms := range RolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		out[role] = set
	}
	return out
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

func RoleHas(role, permission string) bool {
	_, ok := rolePermissionSet[role][permission]
	return ok
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return RoleHas(role, permission), nil
}
