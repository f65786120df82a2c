package usecases

import (
	"context"
	"fmt"

	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/shared/biztime"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// DowngradeReconciler resets a user's plan to unentitled once they no longer
// hold any active device. It runs as a best-effort follow-up outside the
// release transaction; the reset write is idempotent, so two racing
// reconciliations converge on the same state.
type DowngradeReconciler struct {
	userRepo       user.Repository
	userDeviceRepo user.DeviceRepository
	logger         logger.Interface
}

// NewDowngradeReconciler creates a new downgrade reconciler
func NewDowngradeReconciler(
	userRepo user.Repository,
	userDeviceRepo user.DeviceRepository,
	logger logger.Interface,
) *DowngradeReconciler {
	return &DowngradeReconciler{
		userRepo:       userRepo,
		userDeviceRepo: userDeviceRepo,
		logger:         logger,
	}
}

// Reconcile downgrades the user if they hold no active device. Returns
// whether a downgrade was applied.
func (r *DowngradeReconciler) Reconcile(ctx context.Context, uid string) (bool, error) {
	hasActive, err := r.userDeviceRepo.HasActive(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("failed to check active devices: %w", err)
	}
	if hasActive {
		return false, nil
	}

	usr, err := r.userRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	if !usr.IsEntitled() {
		return false, nil
	}

	usr.DowngradeToFree(biztime.NowUTC())
	if err := r.userRepo.Update(ctx, usr); err != nil {
		return false, fmt.Errorf("failed to downgrade user: %w", err)
	}

	r.logger.Infow("user downgraded to free plan", "uid", uid)
	return true, nil
}
