package user

import (
	"context"
)

// Repository persists user records and their subscription projection.
type Repository interface {
	// GetByUID looks a user up by the opaque caller-supplied identifier.
	GetByUID(ctx context.Context, uid string) (*User, error)
	// Create inserts a new user record.
	Create(ctx context.Context, user *User) error
	// Update writes the aggregate back.
	Update(ctx context.Context, user *User) error
	// ListEntitledUIDs returns up to limit uids currently holding a paid
	// plan. Used by the periodic downgrade sweep.
	ListEntitledUIDs(ctx context.Context, limit int) ([]string, error)
}

// DeviceRepository persists the user-scoped device mirrors.
type DeviceRepository interface {
	// Get returns the mirror for (uid, deviceID), or a not-found error.
	Get(ctx context.Context, uid, deviceID string) (*Device, error)
	// ListByUID returns all mirrors owned by a user.
	ListByUID(ctx context.Context, uid string) ([]*Device, error)
	// HasActive reports whether the user holds at least one active mirror.
	HasActive(ctx context.Context, uid string) (bool, error)
	// Save inserts or updates a mirror, touching only activity fields on
	// update (merge-style write).
	Save(ctx context.Context, device *Device) error
	// DeactivateAllByUID flags every mirror of the user inactive and
	// returns the number of rows touched.
	DeactivateAllByUID(ctx context.Context, uid string) (int64, error)
}

// RedemptionRepository persists redemption markers.
type RedemptionRepository interface {
	Create(ctx context.Context, redemption *Redemption) error
	GetByUID(ctx context.Context, uid string) (*Redemption, error)
	DeleteByUID(ctx context.Context, uid string) error
}
