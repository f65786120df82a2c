package usecases

import (
	"context"

	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// sweepPageSize bounds how many entitled users one sweep pass inspects.
const sweepPageSize = 500

// SweepEntitlementsUseCase is the periodic safety net behind the per-release
// reconciler: it walks entitled users and downgrades those who lost their
// last active device without the inline reconciliation catching it.
type SweepEntitlementsUseCase struct {
	userRepo   user.Repository
	reconciler *DowngradeReconciler
	logger     logger.Interface
}

func NewSweepEntitlementsUseCase(
	userRepo user.Repository,
	reconciler *DowngradeReconciler,
	logger logger.Interface,
) *SweepEntitlementsUseCase {
	return &SweepEntitlementsUseCase{
		userRepo:   userRepo,
		reconciler: reconciler,
		logger:     logger,
	}
}

// SweepExpiredEntitlements satisfies the scheduler's processor interface.
func (uc *SweepEntitlementsUseCase) SweepExpiredEntitlements(ctx context.Context) error {
	uids, err := uc.userRepo.ListEntitledUIDs(ctx, sweepPageSize)
	if err != nil {
		return err
	}

	downgraded := 0
	for _, uid := range uids {
		did, err := uc.reconciler.Reconcile(ctx, uid)
		if err != nil {
			uc.logger.Warnw("sweep reconciliation failed", "uid", uid, "error", err)
			continue
		}
		if did {
			downgraded++
		}
	}

	if downgraded > 0 {
		uc.logger.Infow("entitlement sweep downgraded users",
			"inspected", len(uids),
			"downgraded", downgraded,
		)
	}
	return nil
}
