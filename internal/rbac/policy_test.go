package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeEmptyRequirementAlwaysPasses(t *testing.T) {
	actor := Actor{Role: Role{Name: RoleWorker}}
	assert.NoError(t, Authorize(AccessRequirement{}, actor))
}

func TestAuthorizeRoleMismatch(t *testing.T) {
	actor := Actor{Role: Role{Name: RoleWorker}}
	err := Authorize(AccessRequirement{Roles: []string{RoleSuperAdmin, RoleAdmin}}, actor)
	require.Error(t, err)

	var denial *DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, ReasonInsufficientRole, denial.Reason)
	assert.Equal(t, []string{RoleSuperAdmin, RoleAdmin}, denial.Required)
}

func TestAuthorizeRoleMatchAnyOf(t *testing.T) {
	actor := Actor{Role: Role{Name: RoleAdmin}}
	assert.NoError(t, Authorize(AccessRequirement{Roles: []string{RoleSuperAdmin, RoleAdmin}}, actor))
}

func TestAuthorizePermissionsViaRole(t *testing.T) {
	actor := Actor{Role: Role{Name: RoleAdmin, Permissions: []string{PermEditProject}}}
	req := AccessRequirement{
		Roles:       []string{RoleSuperAdmin, RoleAdmin},
		Permissions: []string{PermEditProject},
	}
	assert.NoError(t, Authorize(req, actor))
}

func TestAuthorizePermissionsViaDirectGrant(t *testing.T) {
	actor := Actor{
		Role:              Role{Name: RoleWorker},
		DirectPermissions: []string{PermReadProject},
	}
	assert.NoError(t, Authorize(AccessRequirement{Permissions: []string{PermReadProject}}, actor))
}

func TestAuthorizeAllPermissionsRequired(t *testing.T) {
	actor := Actor{
		Role:              Role{Name: RoleAdmin, Permissions: []string{PermReadProject}},
		DirectPermissions: []string{PermEditProject},
	}

	// Union of role and direct grants satisfies the requirement.
	req := AccessRequirement{Permissions: []string{PermReadProject, PermEditProject}}
	assert.NoError(t, Authorize(req, actor))

	// One missing permission fails the whole check.
	req.Permissions = append(req.Permissions, PermDeleteProject)
	err := Authorize(req, actor)
	require.Error(t, err)

	var denial *DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, ReasonInsufficientPermission, denial.Reason)
	assert.ElementsMatch(t, []string{PermReadProject, PermEditProject}, denial.Held)
}

func TestAuthorizeBothAxesAreIndependent(t *testing.T) {
	actor := Actor{Role: Role{Name: RoleWorker, Permissions: []string{PermReadOrder}}}

	// Permissions held but role rejected.
	err := Authorize(AccessRequirement{
		Roles:       []string{RoleAdmin},
		Permissions: []string{PermReadOrder},
	}, actor)
	var denial *DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, ReasonInsufficientRole, denial.Reason)

	// Role accepted but permission missing.
	err = Authorize(AccessRequirement{
		Roles:       []string{RoleWorker},
		Permissions: []string{PermEditOrder},
	}, actor)
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, ReasonInsufficientPermission, denial.Reason)
}

func TestEffectivePermissionsDeduplicates(t *testing.T) {
	actor := Actor{
		Role:              Role{Name: RoleAdmin, Permissions: []string{PermReadProject, PermEditProject}},
		DirectPermissions: []string{PermEditProject, PermDeleteProject},
	}
	assert.ElementsMatch(t, []string{PermReadProject, PermEditProject, PermDeleteProject}, actor.EffectivePermissions())
}
