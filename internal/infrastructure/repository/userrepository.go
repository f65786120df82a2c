package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/shared/constants"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// UserRepositoryImpl implements the user.Repository interface
type UserRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(database *gorm.DB, logger logger.Interface) user.Repository {
	return &UserRepositoryImpl{
		db:     database,
		logger: logger,
	}
}

// GetByUID looks a user up by the opaque caller-supplied identifier.
func (r *UserRepositoryImpl) GetByUID(ctx context.Context, uid string) (*user.User, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.UserModel
	if err := tx.Where("uid = ?", uid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitlement.ErrUserNotFound()
		}
		r.logger.Errorw("failed to get user", "uid", uid, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return userModelToDomain(&model)
}

// Create inserts a new user record.
func (r *UserRepositoryImpl) Create(ctx context.Context, u *user.User) error {
	tx := db.GetTxFromContext(ctx, r.db)

	model := &models.UserModel{
		UID:        u.UID(),
		PlanType:   u.PlanType(),
		Status:     u.Status(),
		ExpiresAt:  u.ExpiresAt(),
		SourceCode: u.SourceCode(),
		SourceType: u.SourceType(),
		MaxDevices: u.MaxDevices(),
		LastSeenAt: u.LastSeenAt(),
		CreatedAt:  u.CreatedAt(),
		UpdatedAt:  u.UpdatedAt(),
	}
	if err := tx.Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError("user already exists")
		}
		r.logger.Errorw("failed to create user", "uid", u.UID(), "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return u.SetID(model.ID)
}

// Update writes the subscription projection back.
func (r *UserRepositoryImpl) Update(ctx context.Context, u *user.User) error {
	tx := db.GetTxFromContext(ctx, r.db)

	err := tx.Model(&models.UserModel{}).
		Where("id = ?", u.ID()).
		Updates(map[string]interface{}{
			"plan_type":    u.PlanType(),
			"status":       u.Status(),
			"expires_at":   u.ExpiresAt(),
			"source_code":  u.SourceCode(),
			"source_type":  u.SourceType(),
			"max_devices":  u.MaxDevices(),
			"last_seen_at": u.LastSeenAt(),
			"updated_at":   time.Now().UTC(),
		}).Error
	if err != nil {
		r.logger.Errorw("failed to update user", "uid", u.UID(), "error", err)
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// ListEntitledUIDs returns up to limit uids currently holding a paid plan.
func (r *UserRepositoryImpl) ListEntitledUIDs(ctx context.Context, limit int) ([]string, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var uids []string
	err := tx.Model(&models.UserModel{}).
		Where("plan_type <> ?", constants.PlanFree).
		Order("id asc").
		Limit(limit).
		Pluck("uid", &uids).Error
	if err != nil {
		r.logger.Errorw("failed to list entitled users", "error", err)
		return nil, fmt.Errorf("failed to list entitled users: %w", err)
	}

	return uids, nil
}

func userModelToDomain(model *models.UserModel) (*user.User, error) {
	return user.ReconstructUser(
		model.ID,
		model.UID,
		model.PlanType,
		model.Status,
		model.ExpiresAt,
		model.SourceCode,
		model.SourceType,
		model.MaxDevices,
		model.LastSeenAt,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
