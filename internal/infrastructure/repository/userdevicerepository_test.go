package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-inc/nimbus/internal/domain/shared"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
)

func TestUserDeviceRepository(t *testing.T) {
	database := setupTestDB(t)
	repo := NewUserDeviceRepository(database, testLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("save and get", func(t *testing.T) {
		device, err := user.NewDevice("user-1", "device-a", shared.DeviceMetadata{Platform: "ios"}, now)
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, device))
		require.NotZero(t, device.ID())

		found, err := repo.Get(ctx, "user-1", "device-a")
		require.NoError(t, err)
		assert.True(t, found.IsActive())
		assert.Equal(t, "ios", found.Metadata().Platform)
	})

	t.Run("miss is a not found error", func(t *testing.T) {
		_, err := repo.Get(ctx, "user-1", "device-missing")
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("has active follows activity flags", func(t *testing.T) {
		device, err := user.NewDevice("user-2", "device-b", shared.DeviceMetadata{}, now)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, device))

		active, err := repo.HasActive(ctx, "user-2")
		require.NoError(t, err)
		assert.True(t, active)

		device.Deactivate(now.Add(time.Hour))
		require.NoError(t, repo.Save(ctx, device))

		active, err = repo.HasActive(ctx, "user-2")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("deactivate all reports touched rows", func(t *testing.T) {
		for _, id := range []string{"device-c", "device-d", "device-e"} {
			device, err := user.NewDevice("user-3", id, shared.DeviceMetadata{}, now)
			require.NoError(t, err)
			require.NoError(t, repo.Save(ctx, device))
		}

		touched, err := repo.DeactivateAllByUID(ctx, "user-3")
		require.NoError(t, err)
		assert.Equal(t, int64(3), touched)

		// Repeating the deactivation touches nothing.
		touched, err = repo.DeactivateAllByUID(ctx, "user-3")
		require.NoError(t, err)
		assert.Zero(t, touched)

		devices, err := repo.ListByUID(ctx, "user-3")
		require.NoError(t, err)
		require.Len(t, devices, 3)
		for _, device := range devices {
			assert.False(t, device.IsActive())
		}
	})
}
