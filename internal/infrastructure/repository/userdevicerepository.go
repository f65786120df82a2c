package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// UserDeviceRepositoryImpl implements the user.DeviceRepository interface
type UserDeviceRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewUserDeviceRepository creates a new user device repository instance
func NewUserDeviceRepository(database *gorm.DB, logger logger.Interface) user.DeviceRepository {
	return &UserDeviceRepositoryImpl{
		db:     database,
		logger: logger,
	}
}

// Get returns the mirror for (uid, deviceID).
func (r *UserDeviceRepositoryImpl) Get(ctx context.Context, uid, deviceID string) (*user.Device, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.UserDeviceModel
	if err := tx.Where("uid = ? AND device_id = ?", uid, deviceID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("user device not found")
		}
		r.logger.Errorw("failed to get user device", "uid", uid, "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("failed to get user device: %w", err)
	}

	return userDeviceModelToDomain(&model)
}

// ListByUID returns all mirrors owned by a user.
func (r *UserDeviceRepositoryImpl) ListByUID(ctx context.Context, uid string) ([]*user.Device, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var rows []models.UserDeviceModel
	if err := tx.Where("uid = ?", uid).Order("id asc").Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list user devices", "uid", uid, "error", err)
		return nil, fmt.Errorf("failed to list user devices: %w", err)
	}

	devices := make([]*user.Device, 0, len(rows))
	for i := range rows {
		device, err := userDeviceModelToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// HasActive reports whether the user holds at least one active mirror.
func (r *UserDeviceRepositoryImpl) HasActive(ctx context.Context, uid string) (bool, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var count int64
	err := tx.Model(&models.UserDeviceModel{}).
		Where("uid = ? AND is_active = ?", uid, true).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to count active user devices", "uid", uid, "error", err)
		return false, fmt.Errorf("failed to count active user devices: %w", err)
	}

	return count > 0, nil
}

// Save inserts a new mirror or merges activity fields into an existing one.
// Unrelated columns are left untouched (merge-style write).
func (r *UserDeviceRepositoryImpl) Save(ctx context.Context, device *user.Device) error {
	tx := db.GetTxFromContext(ctx, r.db)

	metadata, err := marshalDeviceMetadata(device.Metadata())
	if err != nil {
		return err
	}

	if device.ID() == 0 {
		model := &models.UserDeviceModel{
			UID:          device.UID(),
			DeviceID:     device.DeviceID(),
			IsActive:     device.IsActive(),
			RegisteredAt: device.RegisteredAt(),
			LastSeenAt:   device.LastSeenAt(),
			Metadata:     metadata,
			CreatedAt:    device.CreatedAt(),
			UpdatedAt:    device.UpdatedAt(),
		}
		if err := tx.Create(model).Error; err != nil {
			if errors.IsDuplicateError(err) {
				return errors.NewConflictError("user device already exists")
			}
			r.logger.Errorw("failed to create user device", "uid", device.UID(), "device_id", device.DeviceID(), "error", err)
			return fmt.Errorf("failed to create user device: %w", err)
		}
		return device.SetID(model.ID)
	}

	updates := map[string]interface{}{
		"is_active":    device.IsActive(),
		"last_seen_at": device.LastSeenAt(),
		"updated_at":   time.Now().UTC(),
	}
	if !device.Metadata().IsZero() {
		updates["metadata"] = metadata
	}

	err = tx.Model(&models.UserDeviceModel{}).
		Where("id = ?", device.ID()).
		Updates(updates).Error
	if err != nil {
		r.logger.Errorw("failed to update user device", "id", device.ID(), "error", err)
		return fmt.Errorf("failed to update user device: %w", err)
	}

	return nil
}

// DeactivateAllByUID flags every mirror of the user inactive.
func (r *UserDeviceRepositoryImpl) DeactivateAllByUID(ctx context.Context, uid string) (int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	now := time.Now().UTC()
	result := tx.Model(&models.UserDeviceModel{}).
		Where("uid = ? AND is_active = ?", uid, true).
		Updates(map[string]interface{}{
			"is_active":    false,
			"last_seen_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to deactivate user devices", "uid", uid, "error", result.Error)
		return 0, fmt.Errorf("failed to deactivate user devices: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func userDeviceModelToDomain(model *models.UserDeviceModel) (*user.Device, error) {
	metadata, err := unmarshalDeviceMetadata(model.Metadata)
	if err != nil {
		return nil, err
	}

	return user.ReconstructDevice(
		model.ID,
		model.UID,
		model.DeviceID,
		model.IsActive,
		model.RegisteredAt,
		model.LastSeenAt,
		metadata,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
