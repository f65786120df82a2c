// Package biztime provides time utilities for the entitlement ledger.
// All storage and transport use UTC; expiry windows are computed in fixed
// 24-hour days so that a code activated at any wall-clock instant expires
// exactly validForDays later, independent of timezone or DST.
package biztime

import (
	"fmt"
	"time"
)

// Day is the fixed unit used for validity-window arithmetic.
const Day = 24 * time.Hour

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// AddDays returns t plus the given number of fixed 24-hour days, in UTC.
func AddDays(t time.Time, days int) time.Time {
	return t.UTC().Add(time.Duration(days) * Day)
}

// LaterOf returns the later of the two instants.
func LaterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// FormatISO formats a UTC time for API payloads using RFC3339 format.
func FormatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseISO parses an RFC3339 timestamp.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format %q: %w", s, err)
	}
	return t.UTC(), nil
}
