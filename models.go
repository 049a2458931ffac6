package trust

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrgRole is an organization role. The wire values match the upstream API
// contract; ordering lives in roles.go, not in the raw numbers.
type OrgRole int

const (
	OrgRoleOwner   OrgRole = 0
	OrgRoleAdmin   OrgRole = 1
	OrgRoleUser    OrgRole = 2
	OrgRoleManager OrgRole = 3
)

// MembershipStatus is the confirmation state of an organization membership.
type MembershipStatus int

const (
	MembershipInvited   MembershipStatus = 0
	MembershipAccepted  MembershipStatus = 1
	MembershipConfirmed MembershipStatus = 2
)

// EmergencyAccessType selects what the grantee may do once approved.
type EmergencyAccessType int

const (
	EmergencyAccessView     EmergencyAccessType = 0
	EmergencyAccessTakeover EmergencyAccessType = 1
)

// ParseEmergencyAccessType accepts either the numeric wire value or the
// display name.
func ParseEmergencyAccessType(s string) (EmergencyAccessType, bool) {
	switch s {
	case "0", "View":
		return EmergencyAccessView, true
	case "1", "Takeover":
		return EmergencyAccessTakeover, true
	default:
		return 0, false
	}
}

func (t EmergencyAccessType) String() string {
	if t == EmergencyAccessTakeover {
		return "Takeover"
	}
	return "View"
}

// EmergencyAccessStatus is the lifecycle state of a delegation record.
// Values are persisted; they only grow forward (see state_machine.go).
type EmergencyAccessStatus int

const (
	EmergencyAccessInvited           EmergencyAccessStatus = 0
	EmergencyAccessAccepted          EmergencyAccessStatus = 1
	EmergencyAccessConfirmed         EmergencyAccessStatus = 2
	EmergencyAccessRecoveryInitiated EmergencyAccessStatus = 3
	EmergencyAccessRecoveryApproved  EmergencyAccessStatus = 4
)

func (s EmergencyAccessStatus) String() string {
	switch s {
	case EmergencyAccessInvited:
		return "Invited"
	case EmergencyAccessAccepted:
		return "Accepted"
	case EmergencyAccessConfirmed:
		return "Confirmed"
	case EmergencyAccessRecoveryInitiated:
		return "RecoveryInitiated"
	case EmergencyAccessRecoveryApproved:
		return "RecoveryApproved"
	default:
		return "Unknown"
	}
}

// User is the account entity consumed by the trust layer. The security
// stamp changes whenever a session-invalidating account change occurs;
// UpdatedAt doubles as the revision marker clients poll to resync.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull" json:"name,omitempty"`
	Email         string    `bun:"email,notnull,unique" json:"email,omitempty"`
	EmailVerified bool      `bun:"email_verified" json:"email_verified,omitempty"`
	Premium       bool      `bun:"premium" json:"premium,omitempty"`
	SecurityStamp string    `bun:"security_stamp,notnull" json:"-"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Device is a registered client installation tied to a user.
type Device struct {
	bun.BaseModel `bun:"table:devices,alias:dev"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Name          string    `bun:"name,notnull" json:"name,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Membership links a user to an organization with a role. Only Confirmed
// memberships are usable for authorization.
type Membership struct {
	bun.BaseModel  `bun:"table:memberships,alias:mem"`
	ID             uuid.UUID        `bun:"id,pk,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID        `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	OrganizationID uuid.UUID        `bun:"organization_id,notnull,type:uuid" json:"organization_id,omitempty"`
	Role           OrgRole          `bun:"role,notnull" json:"role"`
	Status         MembershipStatus `bun:"status,notnull" json:"status"`
	CreatedAt      time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EmergencyAccess is a delegated, time-gated vault access grant. Exactly one
// of GranteeID and Email is authoritative before acceptance; acceptance
// binds GranteeID. KeyEncrypted is opaque ciphertext produced client-side.
type EmergencyAccess struct {
	bun.BaseModel       `bun:"table:emergency_accesses,alias:ea"`
	ID                  uuid.UUID             `bun:"id,pk,type:uuid" json:"id,omitempty"`
	GrantorID           uuid.UUID             `bun:"grantor_id,notnull,type:uuid" json:"grantor_id,omitempty"`
	GranteeID           *uuid.UUID            `bun:"grantee_id,nullzero,type:uuid" json:"grantee_id,omitempty"`
	Email               *string               `bun:"email,nullzero" json:"email,omitempty"`
	KeyEncrypted        *string               `bun:"key_encrypted,nullzero" json:"-"`
	Type                EmergencyAccessType   `bun:"atype,notnull" json:"type"`
	Status              EmergencyAccessStatus `bun:"status,notnull" json:"status"`
	WaitTimeDays        int                   `bun:"wait_time_days,notnull" json:"wait_time_days"`
	RecoveryInitiatedAt *time.Time            `bun:"recovery_initiated_at,nullzero" json:"recovery_initiated_at,omitempty"`
	LastNotificationAt  *time.Time            `bun:"last_notification_at,nullzero" json:"last_notification_at,omitempty"`
	CreatedAt           time.Time             `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt           time.Time             `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NewEmergencyAccess builds an Invited record for the grantor's invite
// action. The grantee is identified by email until they accept.
func NewEmergencyAccess(grantorID uuid.UUID, email string, atype EmergencyAccessType, waitTimeDays int) *EmergencyAccess {
	now := time.Now()
	return &EmergencyAccess{
		ID:           uuid.New(),
		GrantorID:    grantorID,
		Email:        &email,
		Type:         atype,
		Status:       EmergencyAccessInvited,
		WaitTimeDays: waitTimeDays,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// GranteeIdentifier returns the authoritative grantee reference: the bound
// uuid after acceptance, the invited email before.
func (e *EmergencyAccess) GranteeIdentifier() string {
	if e.GranteeID != nil {
		return e.GranteeID.String()
	}
	if e.Email != nil {
		return *e.Email
	}
	return ""
}
