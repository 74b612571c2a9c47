package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Role is a closed set of privilege levels bound to an API key.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// roleHierarchy orders roles from least to most privileged.
var roleHierarchy = []Role{RoleViewer, RoleOperator, RoleAdmin}

// roleGrants lists only the permissions each role adds on top of the previous one.
var roleGrants = map[Role][]Permission{
	RoleViewer:   {ReadPermission, ListPermission},
	RoleOperator: {WritePermission, ExecutePermission},
	RoleAdmin:    {ManageKeysPermission, ManageUsersPermission},
}

// PermissionSet is an immutable set of permissions.
type PermissionSet map[Permission]struct{}

// Has reports whether the set contains permission.
func (s PermissionSet) Has(permission Permission) bool {
	_, ok := s[permission]
	return ok
}

// List returns the permissions in the set in AllPermissions order.
func (s PermissionSet) List() []Permission {
	result := make([]Permission, 0, len(s))
	for _, p := range AllPermissions {
		if s.Has(p) {
			result = append(result, p)
		}
	}
	return result
}

// rolePermissions is built once by accumulating grants along the hierarchy, so
// each role's set is a superset of the role below it.
var rolePermissions = buildRolePermissions()

func buildRolePermissions() map[Role]PermissionSet {
	table := make(map[Role]PermissionSet, len(roleHierarchy))
	accumulated := PermissionSet{}
	for _, role := range roleHierarchy {
		for _, p := range roleGrants[role] {
			accumulated[p] = struct{}{}
		}
		set := make(PermissionSet, len(accumulated))
		for p := range accumulated {
			set[p] = struct{}{}
		}
		table[role] = set
	}
	return table
}

// Roles returns every role ordered from least to most privileged.
func Roles() []Role {
	return slices.Clone(roleHierarchy)
}

// IsValid reports whether r belongs to the closed role set.
func (r Role) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns a copy of the permission set granted to r.
func (r Role) Permissions() PermissionSet {
	granted := rolePermissions[r]
	set := make(PermissionSet, len(granted))
	for p := range granted {
		set[p] = struct{}{}
	}
	return set
}

// ParseRole converts a string into a Role, rejecting unknown values.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, value)
	}
	return role, nil
}

// HasPermission reports whether role is granted permission. Unknown roles have no permissions.
func HasPermission(role Role, permission Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return set.Has(permission)
}
