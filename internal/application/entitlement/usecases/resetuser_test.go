package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
)

func (f *ledgerFixture) redemptionCount(t *testing.T, uid string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Table("redemptions").Where("uid = ?", uid).Count(&count).Error)
	return count
}

func TestResetUser_CodeUserFullRollback(t *testing.T) {
	f := newLedgerFixture(t)
	claim := f.claimDeviceUseCase()
	reset := f.resetUserUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-RESET-1", 3, 30)

	_, err := claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-RESET-1", DeviceID: "device-a"})
	require.NoError(t, err)
	_, err = claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-RESET-1", DeviceID: "device-b"})
	require.NoError(t, err)
	require.Equal(t, int64(1), f.redemptionCount(t, "user-1"))

	result, err := reset.Execute(ctx, ResetUserCommand{UID: "user-1", AlsoRemoveRedemption: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.ClearedDevices)
	assert.Equal(t, "NIM-RESET-1", result.CodeID)

	row := f.codeRow(t, "NIM-RESET-1")
	assert.Equal(t, 0, row.ActiveDevices)
	assert.False(t, row.IsUsed)

	usr := f.userRow(t, "user-1")
	assert.Equal(t, "free", usr.PlanType)
	assert.Nil(t, usr.ExpiresAt)

	assert.False(t, f.userDeviceRow(t, "user-1", "device-a").IsActive)
	assert.False(t, f.userDeviceRow(t, "user-1", "device-b").IsActive)
	assert.Zero(t, f.redemptionCount(t, "user-1"))
}

func TestResetUser_KeepsRedemptionWhenAsked(t *testing.T) {
	f := newLedgerFixture(t)
	claim := f.claimDeviceUseCase()
	reset := f.resetUserUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-RESET-2", 2, 30)

	_, err := claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-RESET-2", DeviceID: "device-a"})
	require.NoError(t, err)

	result, err := reset.Execute(ctx, ResetUserCommand{UID: "user-1", AlsoRemoveRedemption: false})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClearedDevices)

	// The marker survives, so the code stays unredeemable for this user.
	assert.Equal(t, int64(1), f.redemptionCount(t, "user-1"))
}

func TestResetUser_TokenUserClearsMirrors(t *testing.T) {
	f := newLedgerFixture(t)
	apply := f.applyTokenUseCase()
	reset := f.resetUserUseCase()
	ctx := context.Background()

	f.seedToken(t, "TKN-RESET", 30, 2)

	_, err := apply.Execute(ctx, ApplyTokenCommand{UID: "user-1", Token: "TKN-RESET", DeviceID: "device-a"})
	require.NoError(t, err)
	_, err = apply.Execute(ctx, ApplyTokenCommand{UID: "user-1", Token: "TKN-RESET", DeviceID: "device-b"})
	require.NoError(t, err)

	result, err := reset.Execute(ctx, ResetUserCommand{UID: "user-1", AlsoRemoveRedemption: true})
	require.NoError(t, err)

	// No backing code, so cleared reports the deactivated mirrors instead.
	assert.Equal(t, 2, result.ClearedDevices)
	assert.Empty(t, result.CodeID)

	usr := f.userRow(t, "user-1")
	assert.Equal(t, "free", usr.PlanType)
	assert.False(t, f.userDeviceRow(t, "user-1", "device-a").IsActive)
	assert.False(t, f.userDeviceRow(t, "user-1", "device-b").IsActive)
}

func TestResetUser_Failures(t *testing.T) {
	f := newLedgerFixture(t)
	reset := f.resetUserUseCase()
	ctx := context.Background()

	t.Run("unknown uid", func(t *testing.T) {
		_, err := reset.Execute(ctx, ResetUserCommand{UID: "user-ghost"})
		assert.True(t, errors.HasReason(err, entitlement.ReasonUserNotFound))
	})

	t.Run("missing uid", func(t *testing.T) {
		_, err := reset.Execute(ctx, ResetUserCommand{})
		assert.True(t, errors.IsValidationError(err))
	})
}
