package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// TokenRepositoryImpl implements the entitlement.TokenRepository interface
type TokenRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewTokenRepository creates a new token repository instance
func NewTokenRepository(database *gorm.DB, logger logger.Interface) entitlement.TokenRepository {
	return &TokenRepositoryImpl{
		db:     database,
		logger: logger,
	}
}

// GetByToken looks up a token by its exact token string.
func (r *TokenRepositoryImpl) GetByToken(ctx context.Context, token string) (*entitlement.Token, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.TokenModel
	if err := tx.Where("token = ?", token).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitlement.ErrTokenNotFound()
		}
		r.logger.Errorw("failed to get token", "error", err)
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return tokenModelToDomain(&model)
}

// Create inserts a new token.
func (r *TokenRepositoryImpl) Create(ctx context.Context, token *entitlement.Token) error {
	tx := db.GetTxFromContext(ctx, r.db)

	devices, err := marshalTokenDevices(token.Devices())
	if err != nil {
		return err
	}

	model := &models.TokenModel{
		Token:        token.Token(),
		TokenType:    token.Type(),
		DurationDays: token.DurationDays(),
		MaxDevices:   token.MaxDevices(),
		IsActive:     token.IsActive(),
		IsUsed:       token.IsUsed(),
		ExpiresAt:    token.ExpiresAt(),
		Devices:      devices,
		Version:      token.Version(),
		CreatedAt:    token.CreatedAt(),
		UpdatedAt:    token.UpdatedAt(),
	}
	if err := tx.Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError("token already exists")
		}
		r.logger.Errorw("failed to create token", "error", err)
		return fmt.Errorf("failed to create token: %w", err)
	}

	return token.SetID(model.ID)
}

// Update writes the aggregate back with an optimistic version check.
// The device list and usage flags change together, so a concurrent apply
// shows up as zero rows affected and the transaction engine retries.
func (r *TokenRepositoryImpl) Update(ctx context.Context, token *entitlement.Token) error {
	tx := db.GetTxFromContext(ctx, r.db)

	devices, err := marshalTokenDevices(token.Devices())
	if err != nil {
		return err
	}

	result := tx.Model(&models.TokenModel{}).
		Where("id = ? AND version = ?", token.ID(), token.Version()).
		Updates(map[string]interface{}{
			"devices":    devices,
			"is_used":    token.IsUsed(),
			"version":    token.Version() + 1,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update token", "token_id", token.ID(), "error", result.Error)
		return fmt.Errorf("failed to update token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entitlement.ErrVersionConflict()
	}

	token.BumpVersion()
	return nil
}

func tokenModelToDomain(model *models.TokenModel) (*entitlement.Token, error) {
	devices, err := unmarshalTokenDevices(model.Devices)
	if err != nil {
		return nil, err
	}

	return entitlement.ReconstructToken(
		model.ID,
		model.Token,
		model.TokenType,
		model.DurationDays,
		model.MaxDevices,
		model.IsActive,
		model.IsUsed,
		model.ExpiresAt,
		devices,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func marshalTokenDevices(devices []entitlement.TokenDevice) (datatypes.JSON, error) {
	if len(devices) == 0 {
		return datatypes.JSON([]byte("[]")), nil
	}
	raw, err := json.Marshal(devices)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token devices: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func unmarshalTokenDevices(raw datatypes.JSON) ([]entitlement.TokenDevice, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var devices []entitlement.TokenDevice
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token devices: %w", err)
	}
	return devices, nil
}
