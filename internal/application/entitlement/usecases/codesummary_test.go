package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
)

func TestGetCodeSummary(t *testing.T) {
	f := newLedgerFixture(t)
	claim := f.claimDeviceUseCase()
	summary := f.summaryUseCase()
	ctx := context.Background()

	f.seedCode(t, "NIM-SUM-1", 2, 30)

	t.Run("fresh code", func(t *testing.T) {
		result, err := summary.Execute(ctx, GetCodeSummaryQuery{Code: "NIM-SUM-1"})
		require.NoError(t, err)

		assert.Equal(t, "NIM-SUM-1", result.Code)
		assert.Equal(t, "pro", result.Plan)
		assert.Equal(t, 2, result.MaxDevices)
		assert.Zero(t, result.ActiveDevices)
		assert.False(t, result.IsUsed)
		assert.False(t, result.Expired)
		assert.Empty(t, result.ExpiresAt)
	})

	t.Run("after a claim", func(t *testing.T) {
		_, err := claim.Execute(ctx, ClaimDeviceCommand{UID: "user-1", Code: "NIM-SUM-1", DeviceID: "device-a"})
		require.NoError(t, err)

		result, err := summary.Execute(ctx, GetCodeSummaryQuery{Code: "NIM-SUM-1"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.ActiveDevices)
		assert.NotEmpty(t, result.ExpiresAt)
	})

	t.Run("case and whitespace folded", func(t *testing.T) {
		result, err := summary.Execute(ctx, GetCodeSummaryQuery{Code: "  nim-sum-1 "})
		require.NoError(t, err)
		assert.Equal(t, "NIM-SUM-1", result.Code)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := summary.Execute(ctx, GetCodeSummaryQuery{Code: "NIM-MISSING"})
		assert.True(t, errors.HasReason(err, entitlement.ReasonCodeNotFound))
	})
}
