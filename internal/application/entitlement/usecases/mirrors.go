package usecases

import (
	"context"
	"fmt"
	"time"

	domainshared "github.com/nimbus-inc/nimbus/internal/domain/shared"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
)

// activateUserMirror writes the active user-side marker for a device,
// creating the mirror if the device was never registered. Merge-style: only
// activity fields and freshly supplied metadata are touched.
func activateUserMirror(
	ctx context.Context,
	repo user.DeviceRepository,
	uid, deviceID string,
	metadata domainshared.DeviceMetadata,
	now time.Time,
) error {
	mirror, err := repo.Get(ctx, uid, deviceID)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			return err
		}
		mirror, err = user.NewDevice(uid, deviceID, metadata, now)
		if err != nil {
			return fmt.Errorf("failed to build user device mirror: %w", err)
		}
		return repo.Save(ctx, mirror)
	}

	mirror.Activate(now)
	mirror.UpdateMetadata(metadata)
	return repo.Save(ctx, mirror)
}

// deactivateUserMirror writes the inactive user-side marker for a device.
// A missing mirror is created already inactive so the release stays
// idempotent for devices that were never registered.
func deactivateUserMirror(
	ctx context.Context,
	repo user.DeviceRepository,
	uid, deviceID string,
	now time.Time,
) error {
	mirror, err := repo.Get(ctx, uid, deviceID)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			return err
		}
		mirror, err = user.NewDevice(uid, deviceID, domainshared.DeviceMetadata{}, now)
		if err != nil {
			return fmt.Errorf("failed to build user device mirror: %w", err)
		}
		mirror.Deactivate(now)
		return repo.Save(ctx, mirror)
	}

	mirror.Deactivate(now)
	return repo.Save(ctx, mirror)
}
