package user

import (
	"errors"
	"time"

	"github.com/nimbus-inc/nimbus/internal/domain/shared"
)

// Device is the user-scoped mirror of device activity. It may exist without
// a code-side binding: a device can be registered before it is ever claimed
// against a grant. Mirrors are flagged inactive, never deleted.
type Device struct {
	id           uint
	uid          string
	deviceID     string
	isActive     bool
	registeredAt time.Time
	lastSeenAt   time.Time
	metadata     shared.DeviceMetadata
	createdAt    time.Time
	updatedAt    time.Time
}

// NewDevice registers a device for a user.
func NewDevice(uid, deviceID string, metadata shared.DeviceMetadata, now time.Time) (*Device, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty")
	}
	if deviceID == "" {
		return nil, errors.New("device ID cannot be empty")
	}

	at := now.UTC()
	return &Device{
		uid:          uid,
		deviceID:     deviceID,
		isActive:     true,
		registeredAt: at,
		lastSeenAt:   at,
		metadata:     metadata,
		createdAt:    at,
		updatedAt:    at,
	}, nil
}

// ReconstructDevice rebuilds a device mirror from persistence.
func ReconstructDevice(
	id uint,
	uid string,
	deviceID string,
	isActive bool,
	registeredAt time.Time,
	lastSeenAt time.Time,
	metadata shared.DeviceMetadata,
	createdAt time.Time,
	updatedAt time.Time,
) (*Device, error) {
	if id == 0 {
		return nil, errors.New("device ID cannot be zero")
	}
	if uid == "" {
		return nil, errors.New("uid cannot be empty")
	}

	return &Device{
		id:           id,
		uid:          uid,
		deviceID:     deviceID,
		isActive:     isActive,
		registeredAt: registeredAt,
		lastSeenAt:   lastSeenAt,
		metadata:     metadata,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

// Activate mirrors an activation decision.
func (d *Device) Activate(now time.Time) {
	at := now.UTC()
	d.isActive = true
	d.lastSeenAt = at
	d.updatedAt = at
}

// Deactivate mirrors a release decision. Idempotent.
func (d *Device) Deactivate(now time.Time) {
	at := now.UTC()
	d.isActive = false
	d.lastSeenAt = at
	d.updatedAt = at
}

// Touch refreshes the last-seen stamp without changing activity.
func (d *Device) Touch(now time.Time) {
	at := now.UTC()
	d.lastSeenAt = at
	d.updatedAt = at
}

// UpdateMetadata merges newly supplied device metadata, keeping existing
// values when the client sent nothing.
func (d *Device) UpdateMetadata(metadata shared.DeviceMetadata) {
	if metadata.IsZero() {
		return
	}
	d.metadata = metadata
}

func (d *Device) ID() uint                        { return d.id }
func (d *Device) UID() string                     { return d.uid }
func (d *Device) DeviceID() string                { return d.deviceID }
func (d *Device) IsActive() bool                  { return d.isActive }
func (d *Device) RegisteredAt() time.Time         { return d.registeredAt }
func (d *Device) LastSeenAt() time.Time           { return d.lastSeenAt }
func (d *Device) Metadata() shared.DeviceMetadata { return d.metadata }
func (d *Device) CreatedAt() time.Time            { return d.createdAt }
func (d *Device) UpdatedAt() time.Time            { return d.updatedAt }

func (d *Device) SetID(id uint) error {
	if id == 0 {
		return errors.New("device ID cannot be zero")
	}
	d.id = id
	return nil
}
