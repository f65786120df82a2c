package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-inc/nimbus/internal/shared/errors"
)

func newTestCode(t *testing.T, maxDevices, validForDays int) *Code {
	t.Helper()
	code, err := NewCode("NIM-TEST-0001", "pro", maxDevices, validForDays)
	require.NoError(t, err)
	require.NoError(t, code.SetID(1))
	return code
}

func TestNewCode(t *testing.T) {
	t.Run("valid code", func(t *testing.T) {
		code, err := NewCode("NIM-0001", "pro", 2, 30)
		require.NoError(t, err)
		assert.Equal(t, "NIM-0001", code.Code())
		assert.Equal(t, 0, code.ActiveDevices())
		assert.False(t, code.IsUsed())
		assert.Nil(t, code.ActivatedAt())
		assert.Nil(t, code.ExpiresAt())
		assert.Equal(t, 1, code.Version())
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		code, err := NewCode("  NIM-0002  ", "pro", 1, 30)
		require.NoError(t, err)
		assert.Equal(t, "NIM-0002", code.Code())
	})

	t.Run("empty code rejected", func(t *testing.T) {
		_, err := NewCode("   ", "pro", 1, 30)
		assert.Error(t, err)
	})

	t.Run("zero capacity rejected", func(t *testing.T) {
		_, err := NewCode("NIM-0003", "pro", 0, 30)
		assert.Error(t, err)
	})
}

func TestCode_ValidateMeta(t *testing.T) {
	t.Run("valid meta passes", func(t *testing.T) {
		code := newTestCode(t, 2, 30)
		assert.NoError(t, code.ValidateMeta())
	})

	t.Run("zeroed capacity refused", func(t *testing.T) {
		code, err := ReconstructCode(1, "NIM-LEGACY", "pro", 0, 30, 0, false, nil, nil, 1, time.Now(), time.Now())
		require.NoError(t, err)
		err = code.ValidateMeta()
		assert.True(t, errors.HasReason(err, ReasonInvalidCodeMeta))
	})

	t.Run("zeroed validity refused", func(t *testing.T) {
		code, err := ReconstructCode(1, "NIM-LEGACY", "pro", 2, 0, 0, false, nil, nil, 1, time.Now(), time.Now())
		require.NoError(t, err)
		err = code.ValidateMeta()
		assert.True(t, errors.HasReason(err, ReasonInvalidCodeMeta))
	})
}

func TestCode_EnsureActivated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first claim pins the window", func(t *testing.T) {
		code := newTestCode(t, 2, 30)
		changed := code.EnsureActivated(now)
		assert.True(t, changed)
		require.NotNil(t, code.ActivatedAt())
		require.NotNil(t, code.ExpiresAt())
		assert.Equal(t, now, *code.ActivatedAt())
		assert.Equal(t, now.Add(30*24*time.Hour), *code.ExpiresAt())
	})

	t.Run("window is pinned once", func(t *testing.T) {
		code := newTestCode(t, 2, 30)
		code.EnsureActivated(now)
		firstExpiry := *code.ExpiresAt()

		later := now.Add(48 * time.Hour)
		changed := code.EnsureActivated(later)
		assert.False(t, changed)
		assert.Equal(t, now, *code.ActivatedAt())
		assert.Equal(t, firstExpiry, *code.ExpiresAt())
	})

	t.Run("missing expiry healed from activation", func(t *testing.T) {
		activated := now.Add(-10 * 24 * time.Hour)
		code, err := ReconstructCode(1, "NIM-OLD", "pro", 2, 30, 1, false, &activated, nil, 1, now, now)
		require.NoError(t, err)

		changed := code.EnsureActivated(now)
		assert.True(t, changed)
		assert.Equal(t, activated, *code.ActivatedAt())
		assert.Equal(t, activated.Add(30*24*time.Hour), *code.ExpiresAt())
	})
}

func TestCode_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("never activated cannot be expired", func(t *testing.T) {
		code := newTestCode(t, 2, 30)
		assert.False(t, code.IsExpired(now))
	})

	t.Run("inside window", func(t *testing.T) {
		code := newTestCode(t, 2, 30)
		code.EnsureActivated(now)
		assert.False(t, code.IsExpired(now.Add(29*24*time.Hour)))
	})

	t.Run("past window", func(t *testing.T) {
		code := newTestCode(t, 2, 30)
		code.EnsureActivated(now)
		assert.True(t, code.IsExpired(now.Add(31*24*time.Hour)))
	})
}

func TestCode_RegisterClaim(t *testing.T) {
	t.Run("claims up to capacity then refuses", func(t *testing.T) {
		code := newTestCode(t, 2, 30)

		require.NoError(t, code.RegisterClaim())
		assert.Equal(t, 1, code.ActiveDevices())
		assert.False(t, code.IsUsed())

		require.NoError(t, code.RegisterClaim())
		assert.Equal(t, 2, code.ActiveDevices())
		assert.True(t, code.IsUsed())

		err := code.RegisterClaim()
		assert.True(t, errors.HasReason(err, ReasonDeviceLimit))
		assert.Equal(t, 2, code.ActiveDevices())
	})

	t.Run("single device code used after first claim", func(t *testing.T) {
		code := newTestCode(t, 1, 30)
		require.NoError(t, code.RegisterClaim())
		assert.True(t, code.IsUsed())
	})
}

func TestCode_RegisterRelease(t *testing.T) {
	t.Run("release frees a slot and clears used", func(t *testing.T) {
		code := newTestCode(t, 2, 30)
		require.NoError(t, code.RegisterClaim())
		require.NoError(t, code.RegisterClaim())
		require.True(t, code.IsUsed())

		code.RegisterRelease(1)
		assert.Equal(t, 1, code.ActiveDevices())
		assert.False(t, code.IsUsed())
	})

	t.Run("counter clamps at zero", func(t *testing.T) {
		code := newTestCode(t, 2, 30)
		require.NoError(t, code.RegisterClaim())

		code.RegisterRelease(5)
		assert.Equal(t, 0, code.ActiveDevices())
	})

	t.Run("non positive count is a no-op", func(t *testing.T) {
		code := newTestCode(t, 2, 30)
		require.NoError(t, code.RegisterClaim())

		code.RegisterRelease(0)
		code.RegisterRelease(-1)
		assert.Equal(t, 1, code.ActiveDevices())
	})
}
