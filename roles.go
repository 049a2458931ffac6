package trust

// The wire values of OrgRole do not sort by privilege (Owner is 0), so the
// hierarchy is one explicit level table and a single comparison. Both the
// admin and owner guard tiers go through AtLeast; there are no per-tier
// boolean checks to drift apart.

var roleLevels = map[OrgRole]int{
	OrgRoleUser:    0,
	OrgRoleManager: 1,
	OrgRoleAdmin:   2,
	OrgRoleOwner:   3,
}

// IsValid checks if the role is one of the predefined valid roles
func (r OrgRole) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the role's position in the privilege ordering.
func (r OrgRole) Level() int {
	return roleLevels[r]
}

// AtLeast checks if this role meets the minimum required level. Unknown
// roles never satisfy any requirement.
func (r OrgRole) AtLeast(min OrgRole) bool {
	level, ok := roleLevels[r]
	if !ok {
		return false
	}
	minLevel, ok := roleLevels[min]
	if !ok {
		return false
	}
	return level >= minLevel
}

func (r OrgRole) String() string {
	switch r {
	case OrgRoleOwner:
		return "Owner"
	case OrgRoleAdmin:
		return "Admin"
	case OrgRoleManager:
		return "Manager"
	case OrgRoleUser:
		return "User"
	default:
		return "Unknown"
	}
}

// AllOrgRoles returns the predefined roles in ascending privilege order.
func AllOrgRoles() []OrgRole {
	return []OrgRole{
		OrgRoleUser,
		OrgRoleManager,
		OrgRoleAdmin,
		OrgRoleOwner,
	}
}
