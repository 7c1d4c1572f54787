package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/crewdesk/internal/rbac"
)

func TestEveryRoleHasGrants(t *testing.T) {
	for _, name := range rbac.RoleNames() {
		assert.NotEmpty(t, roleGrants[name], "role %s has no grants", name)
	}
	assert.Len(t, roleGrants, len(rbac.RoleNames()))
}

func TestGrantsReferenceKnownPermissions(t *testing.T) {
	known := make(map[string]struct{})
	for _, action := range rbac.AllPermissions() {
		known[action] = struct{}{}
		require.Contains(t, permissionDescriptions, action,
			"permission %s has no description", action)
	}
	for role, actions := range roleGrants {
		for _, action := range actions {
			assert.Contains(t, known, action, "role %s grants unknown %s", role, action)
		}
	}
}

func TestSuperAdminHoldsEveryPermission(t *testing.T) {
	assert.ElementsMatch(t, rbac.AllPermissions(), roleGrants[rbac.RoleSuperAdmin])
}
