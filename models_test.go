package trust_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	trust "github.com/vaultguard/go-trust"
)

func TestParseEmergencyAccessType(t *testing.T) {
	t.Parallel()

	cases := map[string]trust.EmergencyAccessType{
		"0":        trust.EmergencyAccessView,
		"View":     trust.EmergencyAccessView,
		"1":        trust.EmergencyAccessTakeover,
		"Takeover": trust.EmergencyAccessTakeover,
	}

	for input, want := range cases {
		got, ok := trust.ParseEmergencyAccessType(input)
		require.True(t, ok, "input %q", input)
		assert.Equal(t, want, got)
	}

	_, ok := trust.ParseEmergencyAccessType("2")
	assert.False(t, ok)
	_, ok = trust.ParseEmergencyAccessType("viewer")
	assert.False(t, ok)
}

func TestNewEmergencyAccess(t *testing.T) {
	t.Parallel()

	grantorID := uuid.New()
	record := trust.NewEmergencyAccess(grantorID, "b@example.com", trust.EmergencyAccessTakeover, 5)

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, grantorID, record.GrantorID)
	assert.Equal(t, trust.EmergencyAccessInvited, record.Status)
	assert.Equal(t, 5, record.WaitTimeDays)
	assert.Nil(t, record.GranteeID)
	assert.Nil(t, record.RecoveryInitiatedAt)
	assert.Equal(t, "b@example.com", record.GranteeIdentifier())
}

func TestEmergencyAccessStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Invited", trust.EmergencyAccessInvited.String())
	assert.Equal(t, "Accepted", trust.EmergencyAccessAccepted.String())
	assert.Equal(t, "Confirmed", trust.EmergencyAccessConfirmed.String())
	assert.Equal(t, "RecoveryInitiated", trust.EmergencyAccessRecoveryInitiated.String())
	assert.Equal(t, "RecoveryApproved", trust.EmergencyAccessRecoveryApproved.String())
}
