package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
)

func TestTokenRepository_GetByToken(t *testing.T) {
	database := setupTestDB(t)
	repo := NewTokenRepository(database, testLogger())
	ctx := context.Background()

	seedToken(t, database, "TKN-REPO-1", "")

	t.Run("round trip", func(t *testing.T) {
		token, err := repo.GetByToken(ctx, "TKN-REPO-1")
		require.NoError(t, err)
		assert.Equal(t, "TKN-REPO-1", token.Token())
		assert.Equal(t, "plus", token.Type())
		assert.Equal(t, 30, token.DurationDays())
		assert.True(t, token.IsActive())
		assert.Empty(t, token.Devices())
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := repo.GetByToken(ctx, "TKN-MISSING")
		assert.True(t, errors.HasReason(err, entitlement.ReasonTokenNotFound))
	})
}

func TestTokenRepository_UpdatePersistsDeviceList(t *testing.T) {
	database := setupTestDB(t)
	repo := NewTokenRepository(database, testLogger())
	ctx := context.Background()

	seedToken(t, database, "TKN-REPO-2", "")

	token, err := repo.GetByToken(ctx, "TKN-REPO-2")
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = token.Apply("device-a", now)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, token))
	assert.Equal(t, 2, token.Version())

	reloaded, err := repo.GetByToken(ctx, "TKN-REPO-2")
	require.NoError(t, err)
	require.Len(t, reloaded.Devices(), 1)
	assert.Equal(t, "device-a", reloaded.Devices()[0].DeviceID)
	assert.Equal(t, 2, reloaded.Version())
}

func TestTokenRepository_UpdateVersionConflict(t *testing.T) {
	database := setupTestDB(t)
	repo := NewTokenRepository(database, testLogger())
	ctx := context.Background()

	seedToken(t, database, "TKN-REPO-3", "")

	// Two readers load the same version; the second write must lose.
	first, err := repo.GetByToken(ctx, "TKN-REPO-3")
	require.NoError(t, err)
	second, err := repo.GetByToken(ctx, "TKN-REPO-3")
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = first.Apply("device-a", now)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, first))

	_, err = second.Apply("device-b", now)
	require.NoError(t, err)
	err = repo.Update(ctx, second)
	assert.True(t, entitlement.IsVersionConflict(err))

	// Only the winning write is visible.
	reloaded, err := repo.GetByToken(ctx, "TKN-REPO-3")
	require.NoError(t, err)
	require.Len(t, reloaded.Devices(), 1)
	assert.Equal(t, "device-a", reloaded.Devices()[0].DeviceID)
}
