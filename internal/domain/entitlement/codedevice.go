package entitlement

import (
	"errors"
	"time"

	"github.com/nimbus-inc/nimbus/internal/domain/shared"
	"github.com/nimbus-inc/nimbus/internal/shared/constants"
)

// CompositeDeviceDocID builds the canonical record id for a device binding.
// Older records may be keyed by bare device id or bare uid instead; the
// release path resolves all three shapes (see CodeDeviceRepository).
func CompositeDeviceDocID(uid, deviceID string) string {
	return uid + "_" + deviceID
}

// CodeDevice is a device binding scoped under a Code. Bindings are
// deactivated on release, never deleted, so the claim history survives.
type CodeDevice struct {
	id         uint
	codeID     uint
	docID      string
	uid        string
	deviceID   string
	isActive   bool
	status     string
	claimedAt  *time.Time
	releasedAt *time.Time
	metadata   shared.DeviceMetadata
	createdAt  time.Time
	updatedAt  time.Time
}

// NewCodeDevice creates an active binding for a first-time claim.
func NewCodeDevice(codeID uint, uid, deviceID string, metadata shared.DeviceMetadata, now time.Time) (*CodeDevice, error) {
	if codeID == 0 {
		return nil, errors.New("code ID cannot be zero")
	}
	if uid == "" {
		return nil, errors.New("uid cannot be empty")
	}
	if deviceID == "" {
		return nil, errors.New("device ID cannot be empty")
	}

	at := now.UTC()
	return &CodeDevice{
		codeID:    codeID,
		docID:     CompositeDeviceDocID(uid, deviceID),
		uid:       uid,
		deviceID:  deviceID,
		isActive:  true,
		status:    constants.DeviceStatusActive,
		claimedAt: &at,
		metadata:  metadata,
		createdAt: at,
		updatedAt: at,
	}, nil
}

// ReconstructCodeDevice rebuilds a binding from persistence.
func ReconstructCodeDevice(
	id uint,
	codeID uint,
	docID string,
	uid string,
	deviceID string,
	isActive bool,
	status string,
	claimedAt *time.Time,
	releasedAt *time.Time,
	metadata shared.DeviceMetadata,
	createdAt time.Time,
	updatedAt time.Time,
) (*CodeDevice, error) {
	if id == 0 {
		return nil, errors.New("code device ID cannot be zero")
	}
	if codeID == 0 {
		return nil, errors.New("code ID cannot be zero")
	}

	return &CodeDevice{
		id:         id,
		codeID:     codeID,
		docID:      docID,
		uid:        uid,
		deviceID:   deviceID,
		isActive:   isActive,
		status:     status,
		claimedAt:  claimedAt,
		releasedAt: releasedAt,
		metadata:   metadata,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}, nil
}

// ConsideredActive reports whether this binding counts against the code's
// active-device counter. Legacy rows carry an empty status; those count as
// active unless the flag says otherwise. This is the double-decrement guard:
// releasing a binding that is not considered active must not touch the counter.
func (d *CodeDevice) ConsideredActive() bool {
	if !d.isActive {
		return false
	}
	return d.status == "" || d.status == constants.DeviceStatusActive
}

// Reactivate re-arms a previously released binding for a new claim.
func (d *CodeDevice) Reactivate(now time.Time) {
	at := now.UTC()
	d.isActive = true
	d.status = constants.DeviceStatusActive
	d.claimedAt = &at
	d.releasedAt = nil
	d.updatedAt = at
}

// Release deactivates the binding. Idempotent.
func (d *CodeDevice) Release(now time.Time) {
	at := now.UTC()
	d.isActive = false
	d.status = constants.DeviceStatusReleased
	d.releasedAt = &at
	d.updatedAt = at
}

// UpdateMetadata merges newly supplied device metadata, keeping existing
// values when the client sent nothing.
func (d *CodeDevice) UpdateMetadata(metadata shared.DeviceMetadata) {
	if metadata.IsZero() {
		return
	}
	d.metadata = metadata
}

func (d *CodeDevice) ID() uint                        { return d.id }
func (d *CodeDevice) CodeID() uint                    { return d.codeID }
func (d *CodeDevice) DocID() string                   { return d.docID }
func (d *CodeDevice) UID() string                     { return d.uid }
func (d *CodeDevice) DeviceID() string                { return d.deviceID }
func (d *CodeDevice) IsActive() bool                  { return d.isActive }
func (d *CodeDevice) Status() string                  { return d.status }
func (d *CodeDevice) ClaimedAt() *time.Time           { return d.claimedAt }
func (d *CodeDevice) ReleasedAt() *time.Time          { return d.releasedAt }
func (d *CodeDevice) Metadata() shared.DeviceMetadata { return d.metadata }
func (d *CodeDevice) CreatedAt() time.Time            { return d.createdAt }
func (d *CodeDevice) UpdatedAt() time.Time            { return d.updatedAt }

func (d *CodeDevice) SetID(id uint) error {
	if id == 0 {
		return errors.New("code device ID cannot be zero")
	}
	d.id = id
	return nil
}
