package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDowngradeReconciler(t *testing.T) {
	f := newLedgerFixture(t)
	claim := f.claimDeviceUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-RECON", 2, 30)

	t.Run("keeps user with active device", func(t *testing.T) {
		_, err := claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-RECON", DeviceID: "device-a"})
		require.NoError(t, err)

		did, err := f.reconciler.Reconcile(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, did)
		assert.Equal(t, "pro", f.userRow(t, "user-1").PlanType)
	})

	t.Run("downgrades once the last mirror goes inactive", func(t *testing.T) {
		err := f.db.Table("user_devices").Where("uid = ?", "user-1").Update("is_active", false).Error
		require.NoError(t, err)

		did, err := f.reconciler.Reconcile(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, did)
		assert.Equal(t, "free", f.userRow(t, "user-1").PlanType)
	})

	t.Run("second pass is a no-op", func(t *testing.T) {
		did, err := f.reconciler.Reconcile(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, did)
	})

	t.Run("unknown uid is not an error", func(t *testing.T) {
		did, err := f.reconciler.Reconcile(ctx, "user-ghost")
		require.NoError(t, err)
		assert.False(t, did)
	})
}

func TestSweepExpiredEntitlements(t *testing.T) {
	f := newLedgerFixture(t)
	claim := f.claimDeviceUseCase()
	sweep := NewSweepEntitlementsUseCase(f.userRepo, f.reconciler, f.log)
	ctx := context.Background()

	f.seedCode(t, "NIM-SWEEP", 4, 30)

	_, err := claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-SWEEP", DeviceID: "device-a"})
	require.NoError(t, err)
	_, err = claim.Execute(ctx, ClaimDeviceCommand{UID: "user-2", Code: "NIM-SWEEP", DeviceID: "device-b"})
	require.NoError(t, err)

	// user-1's mirror went inactive without the inline reconciliation running.
	err = f.db.Table("user_devices").Where("uid = ?", "user-1").Update("is_active", false).Error
	require.NoError(t, err)

	require.NoError(t, sweep.SweepExpiredEntitlements(ctx))

	assert.Equal(t, "free", f.userRow(t, "user-1").PlanType)
	assert.Equal(t, "pro", f.userRow(t, "user-2").PlanType)
}
