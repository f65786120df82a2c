package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// RedemptionRepositoryImpl implements the user.RedemptionRepository interface
type RedemptionRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewRedemptionRepository creates a new redemption repository instance
func NewRedemptionRepository(database *gorm.DB, logger logger.Interface) user.RedemptionRepository {
	return &RedemptionRepositoryImpl{
		db:     database,
		logger: logger,
	}
}

// Create records a redemption marker.
func (r *RedemptionRepositoryImpl) Create(ctx context.Context, redemption *user.Redemption) error {
	tx := db.GetTxFromContext(ctx, r.db)

	model := &models.RedemptionModel{
		UID:       redemption.UID(),
		Code:      redemption.Code(),
		CreatedAt: redemption.CreatedAt(),
	}
	if err := tx.Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError("redemption already recorded")
		}
		r.logger.Errorw("failed to create redemption", "uid", redemption.UID(), "error", err)
		return fmt.Errorf("failed to create redemption: %w", err)
	}

	return redemption.SetID(model.ID)
}

// GetByUID returns the user's redemption marker.
func (r *RedemptionRepositoryImpl) GetByUID(ctx context.Context, uid string) (*user.Redemption, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.RedemptionModel
	if err := tx.Where("uid = ?", uid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("redemption not found")
		}
		r.logger.Errorw("failed to get redemption", "uid", uid, "error", err)
		return nil, fmt.Errorf("failed to get redemption: %w", err)
	}

	return user.ReconstructRedemption(model.ID, model.UID, model.Code, model.CreatedAt)
}

// DeleteByUID removes the user's redemption marker. Deleting a marker that
// does not exist is not an error.
func (r *RedemptionRepositoryImpl) DeleteByUID(ctx context.Context, uid string) error {
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Where("uid = ?", uid).Delete(&models.RedemptionModel{}).Error; err != nil {
		r.logger.Errorw("failed to delete redemption", "uid", uid, "error", err)
		return fmt.Errorf("failed to delete redemption: %w", err)
	}

	return nil
}
