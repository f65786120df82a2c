package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
)

func TestClearCode_BatchedClear(t *testing.T) {
	f := newLedgerFixture(t)
	claim := f.claimDeviceUseCase()
	clear := f.clearCodeUseCase(2)
	ctx := context.Background()

	f.seedCode(t, "NIM-CLEAR-1", 5, 30)

	claims := []struct{ uid, deviceID string }{
		{"user-1", "device-a"},
		{"user-1", "device-b"},
		{"user-2", "device-c"},
		{"user-3", "device-d"},
		{"user-3", "device-e"},
	}
	for _, c := range claims {
		_, err := claim.Execute(ctx, ClaimDeviceCommand{UID: c.uid, Code: "NIM-CLEAR-1", DeviceID: c.deviceID})
		require.NoError(t, err)
	}
	require.Equal(t, 5, f.codeRow(t, "NIM-CLEAR-1").ActiveDevices)

	result, err := clear.Execute(ctx, ClearCodeCommand{Code: "NIM-CLEAR-1"})
	require.NoError(t, err)

	assert.Equal(t, 5, result.ClearedDevices)
	assert.Equal(t, 3, result.Batches)

	row := f.codeRow(t, "NIM-CLEAR-1")
	assert.Equal(t, 0, row.ActiveDevices)
	assert.False(t, row.IsUsed)

	// Every touched user lost their last device and was downgraded.
	for _, uid := range []string{"user-1", "user-2", "user-3"} {
		usr := f.userRow(t, uid)
		assert.Equal(t, "free", usr.PlanType, "uid %s", uid)
	}
	for _, c := range claims {
		assert.False(t, f.userDeviceRow(t, c.uid, c.deviceID).IsActive)
	}
}

func TestClearCode_NothingToClear(t *testing.T) {
	f := newLedgerFixture(t)
	clear := f.clearCodeUseCase(2)
	ctx := context.Background()

	f.seedCode(t, "NIM-CLEAR-2", 2, 30)

	result, err := clear.Execute(ctx, ClearCodeCommand{Code: "NIM-CLEAR-2"})
	require.NoError(t, err)
	assert.Zero(t, result.ClearedDevices)
	assert.Zero(t, result.Batches)
}

func TestClearCode_UnknownCode(t *testing.T) {
	f := newLedgerFixture(t)
	clear := f.clearCodeUseCase(2)
	ctx := context.Background()

	_, err := clear.Execute(ctx, ClearCodeCommand{Code: "NIM-MISSING"})
	assert.True(t, errors.HasReason(err, entitlement.ReasonCodeNotFound))
}
