package usecases

import (
	"context"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/dto"
	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/shared/biztime"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/goroutine"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

type ClearCodeCommand struct {
	Code string
}

// ClearCodeUseCase deactivates every device under a code. Batches commit
// independently for throughput, so the clear is eventually fully applied
// rather than atomic across the whole set; each batch on its own keeps the
// counter and active set consistent.
type ClearCodeUseCase struct {
	directory      entitlement.Directory
	codeRepo       entitlement.CodeRepository
	codeDeviceRepo entitlement.CodeDeviceRepository
	userDeviceRepo user.DeviceRepository
	reconciler     *DowngradeReconciler
	txManager      *db.TransactionManager
	summaryCache   SummaryInvalidator
	batchSize      int
	maxRetries     int
	logger         logger.Interface
}

func NewClearCodeUseCase(
	directory entitlement.Directory,
	codeRepo entitlement.CodeRepository,
	codeDeviceRepo entitlement.CodeDeviceRepository,
	userDeviceRepo user.DeviceRepository,
	reconciler *DowngradeReconciler,
	txManager *db.TransactionManager,
	summaryCache SummaryInvalidator,
	batchSize int,
	maxRetries int,
	logger logger.Interface,
) *ClearCodeUseCase {
	if batchSize < 1 {
		batchSize = 100
	}
	return &ClearCodeUseCase{
		directory:      directory,
		codeRepo:       codeRepo,
		codeDeviceRepo: codeDeviceRepo,
		userDeviceRepo: userDeviceRepo,
		reconciler:     reconciler,
		txManager:      txManager,
		summaryCache:   summaryCache,
		batchSize:      batchSize,
		maxRetries:     maxRetries,
		logger:         logger,
	}
}

func (uc *ClearCodeUseCase) Execute(ctx context.Context, cmd ClearCodeCommand) (*dto.ClearCodeResult, error) {
	// Resolve once up front so an unknown code fails before any batch runs.
	resolved, err := uc.directory.ResolveCode(ctx, cmd.Code)
	if err != nil {
		return nil, err
	}

	cleared := 0
	batches := 0
	touchedUIDs := make(map[string]struct{})

	for {
		batchCleared := 0
		err := runLedgerTx(ctx, uc.txManager, uc.maxRetries, uc.logger, func(txCtx context.Context) error {
			batchCleared = 0

			// Re-read inside the batch transaction; the counter decrement
			// must match exactly the bindings this batch flags.
			code, err := uc.codeRepo.GetByID(txCtx, resolved.ID())
			if err != nil {
				return err
			}

			bindings, err := uc.codeDeviceRepo.ListActiveBatch(txCtx, code.ID(), uc.batchSize)
			if err != nil {
				return err
			}
			if len(bindings) == 0 {
				return nil
			}

			now := biztime.NowUTC()
			for _, binding := range bindings {
				binding.Release(now)
				if err := uc.codeDeviceRepo.Save(txCtx, binding); err != nil {
					return err
				}
				if binding.UID() != "" && binding.DeviceID() != "" {
					if err := deactivateUserMirror(txCtx, uc.userDeviceRepo, binding.UID(), binding.DeviceID(), now); err != nil {
						return err
					}
				}
				touchedUIDs[binding.UID()] = struct{}{}
			}

			code.RegisterRelease(len(bindings))
			if err := uc.codeRepo.Update(txCtx, code); err != nil {
				return err
			}

			batchCleared = len(bindings)
			return nil
		})
		if err != nil {
			// Earlier batches already committed; report what was applied.
			uc.logger.Errorw("bulk clear aborted mid-way",
				"code", resolved.Code(),
				"cleared_devices", cleared,
				"batches", batches,
				"error", err,
			)
			return nil, err
		}

		if batchCleared == 0 {
			break
		}
		cleared += batchCleared
		batches++
	}

	uc.reconcileTouched(ctx, touchedUIDs)
	uc.invalidateSummary(resolved.Code())

	uc.logger.Infow("code cleared",
		"code", resolved.Code(),
		"cleared_devices", cleared,
		"batches", batches,
	)

	return &dto.ClearCodeResult{
		ClearedDevices: cleared,
		Batches:        batches,
	}, nil
}

// reconcileTouched downgrades every affected user that ended up with no
// active device. Best-effort, after the batches committed.
func (uc *ClearCodeUseCase) reconcileTouched(ctx context.Context, uids map[string]struct{}) {
	for uid := range uids {
		if uid == "" {
			continue
		}
		if _, err := uc.reconciler.Reconcile(ctx, uid); err != nil {
			uc.logger.Warnw("post-clear reconciliation failed", "uid", uid, "error", err)
		}
	}
}

func (uc *ClearCodeUseCase) invalidateSummary(code string) {
	if uc.summaryCache == nil || code == "" {
		return
	}
	goroutine.SafeGo(uc.logger, "invalidate-slot-summary", func() {
		if err := uc.summaryCache.InvalidateSummary(context.Background(), code); err != nil {
			uc.logger.Warnw("failed to invalidate slot summary cache", "code", code, "error", err)
		}
	})
}
