package dto

import (
	"time"

	"github.com/nimbus-inc/nimbus/internal/domain/shared"
	"github.com/nimbus-inc/nimbus/internal/shared/biztime"
)

// DeviceInfo is the optional client-supplied device metadata.
type DeviceInfo struct {
	Platform   string `json:"platform"`
	Model      string `json:"model"`
	AppVersion string `json:"app_version"`
}

// ToMetadata converts the transport shape to the domain value object.
func (i *DeviceInfo) ToMetadata() shared.DeviceMetadata {
	if i == nil {
		return shared.DeviceMetadata{}
	}
	return shared.DeviceMetadata{
		Platform:   i.Platform,
		Model:      i.Model,
		AppVersion: i.AppVersion,
	}
}

// ApplyTokenResult is the payload returned after a successful token application.
type ApplyTokenResult struct {
	Plan           string `json:"plan"`
	DurationDays   int    `json:"duration_days"`
	RemainingSlots *int   `json:"remaining_slots"` // nil means unlimited
	ExpiryISO      string `json:"expiry_iso"`
}

// ClaimDeviceResult is the payload returned after a claim.
type ClaimDeviceResult struct {
	ActiveDevices int    `json:"active_devices"`
	MaxDevices    int    `json:"max_devices"`
	AlreadyActive bool   `json:"already_active"`
	IsUsed        bool   `json:"is_used"`
	ExpiresAt     string `json:"expires_at"`
}

// ReleaseDeviceResult is the payload returned after a release.
type ReleaseDeviceResult struct {
	DeviceDocID     string `json:"device_doc_id"`
	WasActiveOnCode bool   `json:"was_active_on_code"`
	UserDowngraded  bool   `json:"user_downgraded"`
}

// ResetUserResult is the payload returned after an administrative user reset.
type ResetUserResult struct {
	ClearedDevices int    `json:"cleared_devices"`
	CodeID         string `json:"code_id,omitempty"`
}

// ClearCodeResult is the payload returned after an administrative bulk clear.
// Batches commit independently, so the count reflects what had been applied
// when the last batch finished.
type ClearCodeResult struct {
	ClearedDevices int `json:"cleared_devices"`
	Batches        int `json:"batches"`
}

// CodeSummaryResult is the read-only capacity summary of a code.
type CodeSummaryResult struct {
	Code          string  `json:"code"`
	Plan          string  `json:"plan"`
	MaxDevices    int     `json:"max_devices"`
	ActiveDevices int     `json:"active_devices"`
	IsUsed        bool    `json:"is_used"`
	Expired       bool    `json:"expired"`
	ExpiresAt     *string `json:"expires_at"`
}

// RegisterDeviceResult is the payload returned after a device registration.
type RegisterDeviceResult struct {
	DeviceID     string `json:"device_id"`
	IsActive     bool   `json:"is_active"`
	RegisteredAt string `json:"registered_at"`
}

// FormatInstant renders an absolute instant for API payloads.
func FormatInstant(t time.Time) string {
	return biztime.FormatISO(t)
}

// FormatOptionalInstant renders a nullable instant for API payloads.
func FormatOptionalInstant(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := biztime.FormatISO(*t)
	return &s
}
