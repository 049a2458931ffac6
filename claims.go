package trust

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPurpose scopes a signed token to a single use-case. The purpose is
// baked into the issuer claim, so validation for one purpose structurally
// rejects tokens minted for any other.
type TokenPurpose string

const (
	PurposeLogin       TokenPurpose = "login"
	PurposeInvite      TokenPurpose = "invite"
	PurposeDelete      TokenPurpose = "delete"
	PurposeVerifyEmail TokenPurpose = "verifyemail"
	PurposeAdmin       TokenPurpose = "admin"
)

// IssuerFor derives the issuer string binding this purpose to a deployment
// origin, e.g. "https://vault.example.com|login".
func (p TokenPurpose) IssuerFor(origin string) string {
	return origin + "|" + string(p)
}

// Validity returns the fixed token lifetime for the purpose. Lifetimes are
// not configurable per call.
func (p TokenPurpose) Validity() time.Duration {
	switch p {
	case PurposeLogin:
		return 2 * time.Hour
	case PurposeAdmin:
		return 20 * time.Minute
	default:
		// invite, delete, verify-email
		return 5 * 24 * time.Hour
	}
}

// AdminPanelSubject is the fixed subject carried by admin-session tokens.
const AdminPanelSubject = "admin_panel"

// LoginClaims is the payload of a login-purpose token. Organization ids are
// grouped by the role the user held at issuance; the security stamp and
// device id tie the token to a live session.
type LoginClaims struct {
	jwt.RegisteredClaims
	Premium       bool     `json:"premium"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	OrgOwner      []string `json:"orgowner"`
	OrgAdmin      []string `json:"orgadmin"`
	OrgUser       []string `json:"orguser"`
	OrgManager    []string `json:"orgmanager"`
	SecurityStamp string   `json:"sstamp"`
	Device        string   `json:"device"`
	Scope         []string `json:"scope"`
	Amr           []string `json:"amr"`
}

// OrgRoleFor returns the highest role the claims carry for the given
// organization. The lists reflect issuance time; authorization decisions
// re-check the database, this is for display and link generation.
func (c *LoginClaims) OrgRoleFor(orgID string) (OrgRole, bool) {
	for _, candidate := range []struct {
		ids  []string
		role OrgRole
	}{
		{c.OrgOwner, OrgRoleOwner},
		{c.OrgAdmin, OrgRoleAdmin},
		{c.OrgManager, OrgRoleManager},
		{c.OrgUser, OrgRoleUser},
	} {
		for _, id := range candidate.ids {
			if id == orgID {
				return candidate.role, true
			}
		}
	}
	return 0, false
}

// IsOrgAdmin reports whether the claims carry Admin rights or better for
// the organization.
func (c *LoginClaims) IsOrgAdmin(orgID string) bool {
	role, ok := c.OrgRoleFor(orgID)
	return ok && role.AtLeast(OrgRoleAdmin)
}

// IsOrgOwner reports whether the claims carry the Owner role for the
// organization.
func (c *LoginClaims) IsOrgOwner(orgID string) bool {
	role, ok := c.OrgRoleFor(orgID)
	return ok && role.AtLeast(OrgRoleOwner)
}

// InviteClaims is the payload of an invite-purpose token.
type InviteClaims struct {
	jwt.RegisteredClaims
	Email          string  `json:"email"`
	OrgID          *string `json:"org_id,omitempty"`
	MembershipID   *string `json:"user_org_id,omitempty"`
	InvitedByEmail *string `json:"invited_by_email,omitempty"`
}

// DeleteClaims is the payload of a delete-account token.
type DeleteClaims struct {
	jwt.RegisteredClaims
}

// VerifyEmailClaims is the payload of an email-verification token.
type VerifyEmailClaims struct {
	jwt.RegisteredClaims
}

// AdminClaims is the payload of an admin-session token.
type AdminClaims struct {
	jwt.RegisteredClaims
}
