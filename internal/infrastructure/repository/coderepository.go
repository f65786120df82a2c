package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// CodeRepositoryImpl implements the entitlement.CodeRepository interface
type CodeRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewCodeRepository creates a new code repository instance
func NewCodeRepository(database *gorm.DB, logger logger.Interface) entitlement.CodeRepository {
	return &CodeRepositoryImpl{
		db:     database,
		logger: logger,
	}
}

// GetByCode looks up a code by its exact code string.
func (r *CodeRepositoryImpl) GetByCode(ctx context.Context, code string) (*entitlement.Code, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.CodeModel
	if err := tx.Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitlement.ErrCodeNotFound()
		}
		r.logger.Errorw("failed to get code", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get code: %w", err)
	}

	return codeModelToDomain(&model)
}

// GetByID looks up a code by numeric id.
func (r *CodeRepositoryImpl) GetByID(ctx context.Context, id uint) (*entitlement.Code, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.CodeModel
	if err := tx.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitlement.ErrCodeNotFound()
		}
		r.logger.Errorw("failed to get code", "code_id", id, "error", err)
		return nil, fmt.Errorf("failed to get code: %w", err)
	}

	return codeModelToDomain(&model)
}

// Create inserts a new code.
func (r *CodeRepositoryImpl) Create(ctx context.Context, code *entitlement.Code) error {
	tx := db.GetTxFromContext(ctx, r.db)

	model := codeDomainToModel(code)
	if err := tx.Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError("code already exists")
		}
		r.logger.Errorw("failed to create code", "code", code.Code(), "error", err)
		return fmt.Errorf("failed to create code: %w", err)
	}

	return code.SetID(model.ID)
}

// Update writes the aggregate back with an optimistic version check.
// A zero rows-affected result means the row changed concurrently; the
// transaction engine treats that as a retryable conflict.
func (r *CodeRepositoryImpl) Update(ctx context.Context, code *entitlement.Code) error {
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.CodeModel{}).
		Where("id = ? AND version = ?", code.ID(), code.Version()).
		Updates(map[string]interface{}{
			"active_devices": code.ActiveDevices(),
			"is_used":        code.IsUsed(),
			"activated_at":   code.ActivatedAt(),
			"expires_at":     code.ExpiresAt(),
			"version":        code.Version() + 1,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update code", "code_id", code.ID(), "error", result.Error)
		return fmt.Errorf("failed to update code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entitlement.ErrVersionConflict()
	}

	code.BumpVersion()
	return nil
}

func codeModelToDomain(model *models.CodeModel) (*entitlement.Code, error) {
	return entitlement.ReconstructCode(
		model.ID,
		model.Code,
		model.PlanType,
		model.MaxDevices,
		model.ValidForDays,
		model.ActiveDevices,
		model.IsUsed,
		model.ActivatedAt,
		model.ExpiresAt,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func codeDomainToModel(code *entitlement.Code) *models.CodeModel {
	return &models.CodeModel{
		ID:            code.ID(),
		Code:          code.Code(),
		PlanType:      code.PlanType(),
		MaxDevices:    code.MaxDevices(),
		ValidForDays:  code.ValidForDays(),
		ActiveDevices: code.ActiveDevices(),
		IsUsed:        code.IsUsed(),
		ActivatedAt:   code.ActivatedAt(),
		ExpiresAt:     code.ExpiresAt(),
		Version:       code.Version(),
		CreatedAt:     code.CreatedAt(),
		UpdatedAt:     code.UpdatedAt(),
	}
}
