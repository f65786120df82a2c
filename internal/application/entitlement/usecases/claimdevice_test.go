package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/dto"
	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
)

func TestClaimDevice_FirstClaim(t *testing.T) {
	f := newLedgerFixture(t)
	uc := f.claimDeviceUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-CLAIM-1", 2, 30)

	result, err := uc.Execute(ctx, ClaimDeviceCommand{
		UID:        "user-1",
		Code:       "NIM-CLAIM-1",
		DeviceID:   "device-a",
		DeviceInfo: &dto.DeviceInfo{Platform: "ios", Model: "iPhone15"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ActiveDevices)
	assert.Equal(t, 2, result.MaxDevices)
	assert.False(t, result.AlreadyActive)
	assert.False(t, result.IsUsed)
	assert.NotEmpty(t, result.ExpiresAt)

	// First claim pins the activation window on the row.
	row := f.codeRow(t, "NIM-CLAIM-1")
	assert.Equal(t, 1, row.ActiveDevices)
	assert.NotNil(t, row.ActivatedAt)
	assert.NotNil(t, row.ExpiresAt)
	assert.Equal(t, 2, row.Version)

	// The user is upserted and upgraded.
	usr := f.userRow(t, "user-1")
	assert.Equal(t, "pro", usr.PlanType)
	assert.Equal(t, "NIM-CLAIM-1", usr.SourceCode)
	assert.Equal(t, "code", usr.SourceType)
	require.NotNil(t, usr.MaxDevices)
	assert.Equal(t, 2, *usr.MaxDevices)

	// The user-side mirror is active.
	mirror := f.userDeviceRow(t, "user-1", "device-a")
	assert.True(t, mirror.IsActive)
}

func TestClaimDevice_IdempotentReclaim(t *testing.T) {
	f := newLedgerFixture(t)
	uc := f.claimDeviceUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-CLAIM-2", 2, 30)

	cmd := ClaimDeviceCommand{UID: "user-1", Code: "NIM-CLAIM-2", DeviceID: "device-a"}
	first, err := uc.Execute(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, 1, first.ActiveDevices)

	second, err := uc.Execute(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, second.AlreadyActive)
	assert.Equal(t, 1, second.ActiveDevices)

	row := f.codeRow(t, "NIM-CLAIM-2")
	assert.Equal(t, 1, row.ActiveDevices)
}

func TestClaimDevice_RecordsRedemptionMarker(t *testing.T) {
	f := newLedgerFixture(t)
	claim := f.claimDeviceUseCase()
	reset := f.resetUserUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-MARK", 3, 30)

	_, err := claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-MARK", DeviceID: "device-a"})
	require.NoError(t, err)

	var marker models.RedemptionModel
	require.NoError(t, f.db.Table("redemptions").Where("uid = ?", "user-1").First(&marker).Error)
	assert.Equal(t, "NIM-MARK", marker.Code)

	// Further claims by the same user reuse the marker.
	_, err = claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-MARK", DeviceID: "device-b"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.redemptionCount(t, "user-1"))

	// A full reset removes it, and the next claim writes a fresh one.
	_, err = reset.Execute(ctx, ResetUserCommand{UID: "user-1", AlsoRemoveRedemption: true})
	require.NoError(t, err)
	assert.Zero(t, f.redemptionCount(t, "user-1"))

	_, err = claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-MARK", DeviceID: "device-a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.redemptionCount(t, "user-1"))
}

func TestClaimDevice_CapacityReached(t *testing.T) {
	f := newLedgerFixture(t)
	uc := f.claimDeviceUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-CLAIM-3", 1, 30)

	result, err := uc.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-CLAIM-3", DeviceID: "device-a"})
	require.NoError(t, err)
	assert.True(t, result.IsUsed)

	_, err = uc.Execute(ctx, ClaimDeviceCommand{UID: "user-2", Code: "NIM-CLAIM-3", DeviceID: "device-b"})
	assert.True(t, errors.HasReason(err, entitlement.ReasonDeviceLimit))

	// The refused claim left nothing behind.
	row := f.codeRow(t, "NIM-CLAIM-3")
	assert.Equal(t, 1, row.ActiveDevices)
	var count int64
	f.db.Table("users").Where("uid = ?", "user-2").Count(&count)
	assert.Zero(t, count)
}

func TestClaimDevice_TwoDeviceWalkthrough(t *testing.T) {
	f := newLedgerFixture(t)
	claim := f.claimDeviceUseCase()
	release := f.releaseDeviceUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-WALK", 2, 30)

	first, err := claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-WALK", DeviceID: "device-a"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ActiveDevices)
	assert.False(t, first.IsUsed)

	second, err := claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-WALK", DeviceID: "device-b"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ActiveDevices)
	assert.True(t, second.IsUsed)

	_, err = claim.Execute(ctx, ClaimDeviceCommand{UID: "user-2", Code: "NIM-WALK", DeviceID: "device-c"})
	assert.True(t, errors.HasReason(err, entitlement.ReasonDeviceLimit))

	released, err := release.Execute(ctx, ReleaseDeviceCommand{UID: "user-1", Code: "NIM-WALK", DeviceID: "device-a"})
	require.NoError(t, err)
	assert.True(t, released.WasActiveOnCode)
	assert.False(t, released.UserDowngraded)

	// The freed slot is claimable again and the code is no longer used.
	third, err := claim.Execute(ctx, ClaimDeviceCommand{UID: "user-2", Code: "NIM-WALK", DeviceID: "device-c"})
	require.NoError(t, err)
	assert.Equal(t, 2, third.ActiveDevices)
	assert.True(t, third.IsUsed)
}

func TestClaimDevice_ReclaimAfterRelease(t *testing.T) {
	f := newLedgerFixture(t)
	claim := f.claimDeviceUseCase()
	release := f.releaseDeviceUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-RECLAIM", 2, 30)

	cmd := ClaimDeviceCommand{UID: "user-1", Code: "NIM-RECLAIM", DeviceID: "device-a"}
	_, err := claim.Execute(ctx, cmd)
	require.NoError(t, err)

	_, err = release.Execute(ctx, ReleaseDeviceCommand{UID: "user-1", Code: "NIM-RECLAIM", DeviceID: "device-a"})
	require.NoError(t, err)

	result, err := claim.Execute(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, result.AlreadyActive)
	assert.Equal(t, 1, result.ActiveDevices)

	// The same binding row was reactivated, not duplicated.
	var count int64
	f.db.Table("entitlement_code_devices").Where("uid = ?", "user-1").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestClaimDevice_Failures(t *testing.T) {
	f := newLedgerFixture(t)
	uc := f.claimDeviceUseCase()
	ctx := context.Background()

	t.Run("unknown code", func(t *testing.T) {
		_, err := uc.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-MISSING", DeviceID: "device-a"})
		assert.True(t, errors.HasReason(err, entitlement.ReasonCodeNotFound))
	})

	t.Run("zeroed capacity meta", func(t *testing.T) {
		f.seedCode(t, "NIM-BROKEN", 0, 30)
		_, err := uc.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-BROKEN", DeviceID: "device-a"})
		assert.True(t, errors.HasReason(err, entitlement.ReasonInvalidCodeMeta))
	})

	t.Run("expired window", func(t *testing.T) {
		activated := time.Now().UTC().Add(-40 * 24 * time.Hour)
		expired := activated.Add(30 * 24 * time.Hour)
		model := f.seedCode(t, "NIM-EXPIRED", 2, 30)
		require.NoError(t, f.db.Model(model).Updates(map[string]interface{}{
			"activated_at": activated,
			"expires_at":   expired,
		}).Error)

		_, err := uc.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-EXPIRED", DeviceID: "device-a"})
		assert.True(t, errors.HasReason(err, entitlement.ReasonCodeExpired))
	})

	t.Run("legacy row missing expiry still refuses when the derived window passed", func(t *testing.T) {
		activated := time.Now().UTC().Add(-40 * 24 * time.Hour)
		model := f.seedCode(t, "NIM-HEAL", 2, 30)
		require.NoError(t, f.db.Model(model).Update("activated_at", activated).Error)

		_, err := uc.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-HEAL", DeviceID: "device-a"})
		assert.True(t, errors.HasReason(err, entitlement.ReasonCodeExpired))
	})

	t.Run("missing identifiers", func(t *testing.T) {
		_, err := uc.Execute(ctx, ClaimDeviceCommand{Code: "NIM-CLAIM-1", DeviceID: "device-a"})
		assert.True(t, errors.IsValidationError(err))
	})
}
