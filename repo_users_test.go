package trust_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_FindByUUIDAndEmail(t *testing.T) {
	db, repo := setupTestRepo(t)
	ctx := context.Background()

	user := seedUser(t, db, "Ada", "ada@example.com")

	byID, err := repo.Users().FindByUUID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := repo.Users().FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repo.Users().FindByUUID(ctx, uuid.New())
	require.Error(t, err)
}

func TestUsers_RotateSecurityStamp(t *testing.T) {
	db, repo := setupTestRepo(t)
	ctx := context.Background()

	user := seedUser(t, db, "Ada", "ada@example.com")
	before := user.SecurityStamp

	rotated, err := repo.Users().RotateSecurityStamp(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, before, rotated.SecurityStamp)
	assert.NotEmpty(t, rotated.SecurityStamp)

	stored, err := repo.Users().FindByUUID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rotated.SecurityStamp, stored.SecurityStamp)
}

func TestDevices_FindAllByUser(t *testing.T) {
	db, repo := setupTestRepo(t)
	ctx := context.Background()

	user := seedUser(t, db, "Ada", "ada@example.com")
	other := seedUser(t, db, "Bob", "bob@example.com")

	first := seedDevice(t, db, user.ID)
	second := seedDevice(t, db, user.ID)
	seedDevice(t, db, other.ID)

	devices, err := repo.Devices().FindAllByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	ids := []uuid.UUID{devices[0].ID, devices[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}
