package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	domainshared "github.com/nimbus-inc/nimbus/internal/domain/shared"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/shared/constants"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// CodeDeviceRepositoryImpl implements the entitlement.CodeDeviceRepository interface
type CodeDeviceRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewCodeDeviceRepository creates a new code device repository instance
func NewCodeDeviceRepository(database *gorm.DB, logger logger.Interface) entitlement.CodeDeviceRepository {
	return &CodeDeviceRepositoryImpl{
		db:     database,
		logger: logger,
	}
}

// GetByDocID resolves a binding by record id, whatever historical shape it was written with.
func (r *CodeDeviceRepositoryImpl) GetByDocID(ctx context.Context, codeID uint, docID string) (*entitlement.CodeDevice, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.CodeDeviceModel
	if err := tx.Where("code_id = ? AND doc_id = ?", codeID, docID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("device binding not found")
		}
		r.logger.Errorw("failed to get code device", "code_id", codeID, "doc_id", docID, "error", err)
		return nil, fmt.Errorf("failed to get code device: %w", err)
	}

	return codeDeviceModelToDomain(&model)
}

// FindByDeviceID is the field-search fallback by client device id.
func (r *CodeDeviceRepositoryImpl) FindByDeviceID(ctx context.Context, codeID uint, deviceID string) (*entitlement.CodeDevice, error) {
	return r.findByField(ctx, codeID, "device_id", deviceID)
}

// FindByUID is the last-resort field-search fallback by owning user.
func (r *CodeDeviceRepositoryImpl) FindByUID(ctx context.Context, codeID uint, uid string) (*entitlement.CodeDevice, error) {
	return r.findByField(ctx, codeID, "uid", uid)
}

func (r *CodeDeviceRepositoryImpl) findByField(ctx context.Context, codeID uint, column, value string) (*entitlement.CodeDevice, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.CodeDeviceModel
	err := tx.Where(fmt.Sprintf("code_id = ? AND %s = ?", column), codeID, value).
		Order("id asc").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("device binding not found")
		}
		r.logger.Errorw("failed to find code device", "code_id", codeID, "column", column, "error", err)
		return nil, fmt.Errorf("failed to find code device: %w", err)
	}

	return codeDeviceModelToDomain(&model)
}

// ListActiveByUID returns the bindings of one user currently considered active.
func (r *CodeDeviceRepositoryImpl) ListActiveByUID(ctx context.Context, codeID uint, uid string) ([]*entitlement.CodeDevice, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var rows []models.CodeDeviceModel
	err := tx.Where("code_id = ? AND uid = ? AND is_active = ?", codeID, uid, true).
		Where("status = ? OR status = ?", constants.DeviceStatusActive, "").
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		r.logger.Errorw("failed to list active code devices", "code_id", codeID, "uid", uid, "error", err)
		return nil, fmt.Errorf("failed to list active code devices: %w", err)
	}

	return codeDeviceModelsToDomain(rows)
}

// ListActiveBatch returns up to limit active bindings for bulk clears.
func (r *CodeDeviceRepositoryImpl) ListActiveBatch(ctx context.Context, codeID uint, limit int) ([]*entitlement.CodeDevice, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var rows []models.CodeDeviceModel
	err := tx.Where("code_id = ? AND is_active = ?", codeID, true).
		Where("status = ? OR status = ?", constants.DeviceStatusActive, "").
		Order("id asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		r.logger.Errorw("failed to list active code devices", "code_id", codeID, "error", err)
		return nil, fmt.Errorf("failed to list active code devices: %w", err)
	}

	return codeDeviceModelsToDomain(rows)
}

// CountActive counts bindings currently considered active.
func (r *CodeDeviceRepositoryImpl) CountActive(ctx context.Context, codeID uint) (int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var count int64
	err := tx.Model(&models.CodeDeviceModel{}).
		Where("code_id = ? AND is_active = ?", codeID, true).
		Where("status = ? OR status = ?", constants.DeviceStatusActive, "").
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to count active code devices", "code_id", codeID, "error", err)
		return 0, fmt.Errorf("failed to count active code devices: %w", err)
	}

	return count, nil
}

// Save inserts a new binding or merges activity fields into an existing one.
// Unrelated columns on the row are left untouched (merge-style write).
func (r *CodeDeviceRepositoryImpl) Save(ctx context.Context, device *entitlement.CodeDevice) error {
	tx := db.GetTxFromContext(ctx, r.db)

	metadata, err := marshalDeviceMetadata(device.Metadata())
	if err != nil {
		return err
	}

	if device.ID() == 0 {
		model := &models.CodeDeviceModel{
			CodeID:     device.CodeID(),
			DocID:      device.DocID(),
			UID:        device.UID(),
			DeviceID:   device.DeviceID(),
			IsActive:   device.IsActive(),
			Status:     device.Status(),
			ClaimedAt:  device.ClaimedAt(),
			ReleasedAt: device.ReleasedAt(),
			Metadata:   metadata,
			CreatedAt:  device.CreatedAt(),
			UpdatedAt:  device.UpdatedAt(),
		}
		if err := tx.Create(model).Error; err != nil {
			if errors.IsDuplicateError(err) {
				return errors.NewConflictError("device binding already exists")
			}
			r.logger.Errorw("failed to create code device", "code_id", device.CodeID(), "doc_id", device.DocID(), "error", err)
			return fmt.Errorf("failed to create code device: %w", err)
		}
		return device.SetID(model.ID)
	}

	updates := map[string]interface{}{
		"is_active":   device.IsActive(),
		"status":      device.Status(),
		"claimed_at":  device.ClaimedAt(),
		"released_at": device.ReleasedAt(),
		"updated_at":  time.Now().UTC(),
	}
	if !device.Metadata().IsZero() {
		updates["metadata"] = metadata
	}

	err = tx.Model(&models.CodeDeviceModel{}).
		Where("id = ?", device.ID()).
		Updates(updates).Error
	if err != nil {
		r.logger.Errorw("failed to update code device", "id", device.ID(), "error", err)
		return fmt.Errorf("failed to update code device: %w", err)
	}

	return nil
}

func codeDeviceModelToDomain(model *models.CodeDeviceModel) (*entitlement.CodeDevice, error) {
	metadata, err := unmarshalDeviceMetadata(model.Metadata)
	if err != nil {
		return nil, err
	}

	return entitlement.ReconstructCodeDevice(
		model.ID,
		model.CodeID,
		model.DocID,
		model.UID,
		model.DeviceID,
		model.IsActive,
		model.Status,
		model.ClaimedAt,
		model.ReleasedAt,
		metadata,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func codeDeviceModelsToDomain(rows []models.CodeDeviceModel) ([]*entitlement.CodeDevice, error) {
	devices := make([]*entitlement.CodeDevice, 0, len(rows))
	for i := range rows {
		device, err := codeDeviceModelToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func marshalDeviceMetadata(metadata domainshared.DeviceMetadata) (datatypes.JSON, error) {
	if metadata.IsZero() {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal device metadata: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func unmarshalDeviceMetadata(raw datatypes.JSON) (domainshared.DeviceMetadata, error) {
	var metadata domainshared.DeviceMetadata
	if len(raw) == 0 {
		return metadata, nil
	}
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to unmarshal device metadata: %w", err)
	}
	return metadata, nil
}
