package rbac

import "time"

// Role names are a fixed set; every user holds exactly one.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleWorker     = "WORKER"
)

// Permission action codes.
const (
	PermCreateProject = "CREATE_PROJECT"
	PermEditProject   = "EDIT_PROJECT"
	PermDeleteProject = "DELETE_PROJECT"
	PermReadProject   = "READ_PROJECT"

	PermCreateOrder = "CREATE_ORDER"
	PermEditOrder   = "EDIT_ORDER"
	PermDeleteOrder = "DELETE_ORDER"
	PermReadOrder   = "READ_ORDER"

	PermCreateIssue = "CREATE_ISSUE"
	PermEditIssue   = "EDIT_ISSUE"
	PermDeleteIssue = "DELETE_ISSUE"
	PermReadIssue   = "READ_ISSUE"

	PermManageUsers       = "MANAGE_USERS"
	PermManageRoles       = "MANAGE_ROLES"
	PermManagePermissions = "MANAGE_PERMISSIONS"
)

// RoleNames lists the valid role names.
func RoleNames() []string {
	return []string{RoleSuperAdmin, RoleAdmin, RoleWorker}
}

// AllPermissions lists every permission action code.
func AllPermissions() []string {
	return []string{
		PermCreateProject, PermEditProject, PermDeleteProject, PermReadProject,
		PermCreateOrder, PermEditOrder, PermDeleteOrder, PermReadOrder,
		PermCreateIssue, PermEditIssue, PermDeleteIssue, PermReadIssue,
		PermManageUsers, PermManageRoles, PermManagePermissions,
	}
}

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// Actor is the authenticated identity making a request. It is built fresh
// per request from a verified credential and discarded at request end.
type Actor struct {
	ID                int64    `json:"id"`
	Subject           string   `json:"-"`
	Email             string   `json:"email"`
	DisplayName       string   `json:"displayName"`
	Role              Role     `json:"role"`
	DirectPermissions []string `json:"directPermissions,omitempty"`
}

// EffectivePermissions returns the union of role-level and directly granted
// permission codes.
func (a Actor) EffectivePermissions() []string {
	seen := make(map[string]struct{}, len(a.Role.Permissions)+len(a.DirectPermissions))
	out := make([]string, 0, len(a.Role.Permissions)+len(a.DirectPermissions))
	for _, p := range a.Role.Permissions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range a.DirectPermissions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// AccessRequirement is a route's declared gate: a set of acceptable roles
// (any match suffices) and a set of required permissions (all must be held).
// An empty set on either axis means no restriction on that axis.
type AccessRequirement struct {
	Roles       []string
	Permissions []string
}
