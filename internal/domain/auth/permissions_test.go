package auth

import (
	"context"
	"errors"
	"testing"
)

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestDefaultPermissionsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		if _, ok := seen[perm]; ok {
			t.Fatalf("duplicate permission %s", perm)
		}
		seen[perm] = struct{}{}
	}
}

func TestOnlyLeadersWriteEvaluations(t *testing.T) {
	for role := range RolePermissions {
		got := RoleHas(role, PermEvaluationsWrite)
		if got != (role == RoleLeader) {
			t.Fatalf("role %s evaluations.write = %v", role, got)
		}
	}
}

func TestActorRequire(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		perm  string
		want  error
	}{
		{name: "admin manages catalog", actor: Actor{UserID: "a", Role: RoleAdmin}, perm: PermCatalogManage},
		{name: "leader cannot manage cycles", actor: Actor{UserID: "l", Role: RoleLeader}, perm: PermCyclesManage, want: ErrForbidden},
		{name: "employee updates own status", actor: Actor{UserID: "e", Role: RoleEmployee}, perm: PermCycleStatusUpdate},
		{name: "anonymous", actor: Actor{}, perm: PermCatalogRead, want: ErrUnauthenticated},
		{name: "unknown role", actor: Actor{UserID: "x", Role: "hr"}, perm: PermCatalogRead, want: ErrUnauthenticated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.actor.Require(tc.perm)
			if tc.want == nil && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestStaticPermissions(t *testing.T) {
	ok, err := StaticPermissions{}.HasPermission(context.Background(), RoleAdmin, PermAuditRead)
	if err != nil || !ok {
		t.Fatalf("expected admin to read audit, got %v %v", ok, err)
	}
	ok, _ = StaticPermissions{}.HasPermission(context.Background(), RoleEmployee, PermAuditRead)
	if ok {
		t.Fatal("expected employee to be denied audit.read")
	}
}
