package trust_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	trust "github.com/vaultguard/go-trust"
)

func TestOrgRole_WireValues(t *testing.T) {
	t.Parallel()

	// wire values are a legacy contract and do not sort by privilege
	assert.Equal(t, trust.OrgRole(0), trust.OrgRoleOwner)
	assert.Equal(t, trust.OrgRole(1), trust.OrgRoleAdmin)
	assert.Equal(t, trust.OrgRole(2), trust.OrgRoleUser)
	assert.Equal(t, trust.OrgRole(3), trust.OrgRoleManager)
}

func TestOrgRole_AtLeastIsMonotonic(t *testing.T) {
	t.Parallel()

	ordered := []trust.OrgRole{
		trust.OrgRoleUser,
		trust.OrgRoleManager,
		trust.OrgRoleAdmin,
		trust.OrgRoleOwner,
	}

	for i, role := range ordered {
		for j, min := range ordered {
			assert.Equal(t, i >= j, role.AtLeast(min),
				"%s.AtLeast(%s)", role, min)
		}
	}
}

func TestOrgRole_OwnerImpliesEveryTier(t *testing.T) {
	t.Parallel()

	for _, min := range trust.AllOrgRoles() {
		assert.True(t, trust.OrgRoleOwner.AtLeast(min))
	}

	assert.False(t, trust.OrgRoleAdmin.AtLeast(trust.OrgRoleOwner))
	assert.False(t, trust.OrgRoleManager.AtLeast(trust.OrgRoleAdmin))
	assert.False(t, trust.OrgRoleUser.AtLeast(trust.OrgRoleManager))
}

func TestOrgRole_IsValid(t *testing.T) {
	t.Parallel()

	for _, role := range trust.AllOrgRoles() {
		assert.True(t, role.IsValid())
	}

	assert.False(t, trust.OrgRole(42).IsValid())
	assert.False(t, trust.OrgRole(-1).IsValid())
	assert.False(t, trust.OrgRole(42).AtLeast(trust.OrgRoleUser))
}
