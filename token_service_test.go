package trust_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	trust "github.com/vaultguard/go-trust"
)

const testOrigin = "https://vault.example.com"

func testUser() *trust.User {
	return &trust.User{
		ID:            uuid.New(),
		Name:          "Ada",
		Email:         "ada@example.com",
		EmailVerified: true,
		Premium:       true,
		SecurityStamp: uuid.New().String(),
	}
}

func TestTokenCodec_LoginRoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, testOrigin)
	user := testUser()
	device := &trust.Device{ID: uuid.New(), UserID: user.ID}

	ownerOrg := uuid.New()
	userOrg := uuid.New()
	memberships := []*trust.Membership{
		{UserID: user.ID, OrganizationID: ownerOrg, Role: trust.OrgRoleOwner, Status: trust.MembershipConfirmed},
		{UserID: user.ID, OrganizationID: userOrg, Role: trust.OrgRoleUser, Status: trust.MembershipConfirmed},
		// invited memberships never make it into the claims
		{UserID: user.ID, OrganizationID: uuid.New(), Role: trust.OrgRoleAdmin, Status: trust.MembershipInvited},
	}

	raw, err := codec.IssueLogin(user, device, memberships)
	require.NoError(t, err)

	claims, err := codec.DecodeLogin(raw)
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, testOrigin+"|login", claims.Issuer)
	assert.Equal(t, user.SecurityStamp, claims.SecurityStamp)
	assert.Equal(t, device.ID.String(), claims.Device)
	assert.Equal(t, []string{"api", "offline_access"}, claims.Scope)
	assert.Equal(t, []string{"Application"}, claims.Amr)
	assert.Equal(t, []string{ownerOrg.String()}, claims.OrgOwner)
	assert.Equal(t, []string{userOrg.String()}, claims.OrgUser)
	assert.Empty(t, claims.OrgAdmin)

	assert.True(t, claims.IsOrgOwner(ownerOrg.String()))
	assert.True(t, claims.IsOrgAdmin(ownerOrg.String()))
	assert.False(t, claims.IsOrgAdmin(userOrg.String()))
}

func TestTokenCodec_RejectsCrossPurpose(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, testOrigin)
	user := testUser()

	invite, err := codec.IssueInvite(user.ID, user.Email, nil, nil, nil)
	require.NoError(t, err)

	_, err = codec.DecodeLogin(invite)
	require.Error(t, err)

	login, err := codec.IssueLogin(user, &trust.Device{ID: uuid.New()}, nil)
	require.NoError(t, err)

	_, err = codec.DecodeAdmin(login)
	require.Error(t, err, "a login token must never decode into admin claims")

	_, err = codec.DecodeInvite(invite)
	assert.NoError(t, err, "the minted purpose still validates")
}

func TestTokenCodec_RejectsForeignOrigin(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, testOrigin)
	other := newTestCodec(t, "https://other.example.com")

	raw, err := codec.IssueDelete(uuid.New())
	require.NoError(t, err)

	_, err = other.DecodeDelete(raw)
	require.Error(t, err, "issuer binds tokens to their deployment origin")
}

func TestTokenCodec_ExpiryAndLeeway(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := issuedAt

	codec := newTestCodec(t, testOrigin, trust.WithTokenCodecClock(func() time.Time {
		return clock
	}))

	raw, err := codec.IssueAdmin()
	require.NoError(t, err)

	claims, err := codec.DecodeAdmin(raw)
	require.NoError(t, err)
	assert.Equal(t, trust.AdminPanelSubject, claims.Subject)

	// 20m lifetime, 30s leeway: still valid 20s past expiry
	clock = issuedAt.Add(20*time.Minute + 20*time.Second)
	_, err = codec.DecodeAdmin(raw)
	assert.NoError(t, err)

	// past the leeway window the token is dead
	clock = issuedAt.Add(20*time.Minute + 40*time.Second)
	_, err = codec.DecodeAdmin(raw)
	require.Error(t, err)
	assert.True(t, trust.IsTokenExpiredError(err))
}

func TestTokenCodec_Lifetimes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2*time.Hour, trust.PurposeLogin.Validity())
	assert.Equal(t, 20*time.Minute, trust.PurposeAdmin.Validity())
	assert.Equal(t, 5*24*time.Hour, trust.PurposeInvite.Validity())
	assert.Equal(t, 5*24*time.Hour, trust.PurposeDelete.Validity())
	assert.Equal(t, 5*24*time.Hour, trust.PurposeVerifyEmail.Validity())
}

func TestTokenCodec_MalformedInput(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, testOrigin)

	_, err := codec.DecodeLogin("not-a-token")
	require.Error(t, err)
	assert.True(t, trust.IsMalformedError(err))

	raw, err := codec.IssueVerifyEmail(uuid.New())
	require.NoError(t, err)

	// surrounding whitespace is stripped before parsing
	_, err = codec.DecodeVerifyEmail("  " + raw + "\n")
	assert.NoError(t, err)
}

func TestTokenCodec_InviteClaims(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, testOrigin)

	userID := uuid.New()
	orgID := uuid.New().String()
	membershipID := uuid.New().String()
	inviter := "owner@example.com"

	raw, err := codec.IssueInvite(userID, "new@example.com", &orgID, &membershipID, &inviter)
	require.NoError(t, err)

	claims, err := codec.DecodeInvite(raw)
	require.NoError(t, err)

	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "new@example.com", claims.Email)
	require.NotNil(t, claims.OrgID)
	assert.Equal(t, orgID, *claims.OrgID)
	require.NotNil(t, claims.MembershipID)
	assert.Equal(t, membershipID, *claims.MembershipID)
	require.NotNil(t, claims.InvitedByEmail)
	assert.Equal(t, inviter, *claims.InvitedByEmail)
}
