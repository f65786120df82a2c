package entitlement

import (
	"time"

	"github.com/nimbus-inc/nimbus/internal/shared/biztime"
)

// ExpiryFromActivation derives the expiry instant of a capacity-limited code.
// The window is pinned at first activation and never recomputed afterwards.
func ExpiryFromActivation(activatedAt time.Time, validForDays int) time.Time {
	return biztime.AddDays(activatedAt, validForDays)
}

// ExtendedExpiry computes the new subscription expiry when a token is applied.
// The window extends from whichever is later: now or the user's current expiry.
// Applying a second token early therefore never costs already-paid time.
func ExtendedExpiry(now time.Time, currentExpiry *time.Time, durationDays int) time.Time {
	base := now
	if currentExpiry != nil {
		base = biztime.LaterOf(now, *currentExpiry)
	}
	return biztime.AddDays(base, durationDays)
}

// CapacityReached reports whether a counter-tracked grant is out of slots.
// A non-positive maximum never reaches capacity (unlimited).
func CapacityReached(activeDevices, maxDevices int) bool {
	if maxDevices <= 0 {
		return false
	}
	return activeDevices >= maxDevices
}
