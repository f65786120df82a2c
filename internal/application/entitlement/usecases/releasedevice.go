package usecases

import (
	"context"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/dto"
	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/shared/biztime"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/goroutine"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

type ReleaseDeviceCommand struct {
	UID      string
	Code     string
	DeviceID string
}

// ReleaseDeviceUseCase reverses a claim. Resolution of the binding tolerates
// the historical record-id shapes; a claim that never happened still releases
// cleanly (idempotent no-op on the code side). Reconciliation runs after the
// transaction as a best-effort follow-up.
type ReleaseDeviceUseCase struct {
	directory      entitlement.Directory
	codeRepo       entitlement.CodeRepository
	codeDeviceRepo entitlement.CodeDeviceRepository
	userDeviceRepo user.DeviceRepository
	reconciler     *DowngradeReconciler
	txManager      *db.TransactionManager
	summaryCache   SummaryInvalidator
	maxRetries     int
	logger         logger.Interface
}

func NewReleaseDeviceUseCase(
	directory entitlement.Directory,
	codeRepo entitlement.CodeRepository,
	codeDeviceRepo entitlement.CodeDeviceRepository,
	userDeviceRepo user.DeviceRepository,
	reconciler *DowngradeReconciler,
	txManager *db.TransactionManager,
	summaryCache SummaryInvalidator,
	maxRetries int,
	logger logger.Interface,
) *ReleaseDeviceUseCase {
	return &ReleaseDeviceUseCase{
		directory:      directory,
		codeRepo:       codeRepo,
		codeDeviceRepo: codeDeviceRepo,
		userDeviceRepo: userDeviceRepo,
		reconciler:     reconciler,
		txManager:      txManager,
		summaryCache:   summaryCache,
		maxRetries:     maxRetries,
		logger:         logger,
	}
}

func (uc *ReleaseDeviceUseCase) Execute(ctx context.Context, cmd ReleaseDeviceCommand) (*dto.ReleaseDeviceResult, error) {
	if cmd.UID == "" || cmd.DeviceID == "" {
		return nil, errors.NewValidationError("uid and device_id are required")
	}

	var docID string
	var wasActive bool
	var codeString string
	err := runLedgerTx(ctx, uc.txManager, uc.maxRetries, uc.logger, func(txCtx context.Context) error {
		code, err := uc.directory.ResolveCode(txCtx, cmd.Code)
		if err != nil {
			return err
		}
		codeString = code.Code()

		now := biztime.NowUTC()

		binding, err := uc.resolveBinding(txCtx, code.ID(), cmd.UID, cmd.DeviceID)
		if err != nil {
			return err
		}

		if binding == nil {
			// Never claimed: mirror the inactive state and stop. The code
			// side is left untouched; a release must not fabricate a binding.
			docID = ""
			wasActive = false
			return deactivateUserMirror(txCtx, uc.userDeviceRepo, cmd.UID, cmd.DeviceID, now)
		}

		docID = binding.DocID()
		wasActive = binding.ConsideredActive()

		binding.Release(now)
		if err := uc.codeDeviceRepo.Save(txCtx, binding); err != nil {
			return err
		}

		if wasActive {
			code.RegisterRelease(1)
			if err := uc.codeRepo.Update(txCtx, code); err != nil {
				return err
			}
		}

		return deactivateUserMirror(txCtx, uc.userDeviceRepo, cmd.UID, cmd.DeviceID, now)
	})
	if err != nil {
		return nil, err
	}

	downgraded := uc.reconcile(ctx, cmd.UID)
	uc.invalidateSummary(codeString)

	uc.logger.Infow("device released",
		"uid", cmd.UID,
		"code", codeString,
		"device_id", cmd.DeviceID,
		"device_doc_id", docID,
		"was_active", wasActive,
		"user_downgraded", downgraded,
	)

	return &dto.ReleaseDeviceResult{
		DeviceDocID:     docID,
		WasActiveOnCode: wasActive,
		UserDowngraded:  downgraded,
	}, nil
}

// resolveBinding tries the historical record-id shapes in a fixed order:
// composite uid_deviceID, bare deviceID, bare uid, then field search by
// device id and finally by uid. Returns nil when nothing matches.
func (uc *ReleaseDeviceUseCase) resolveBinding(ctx context.Context, codeID uint, uid, deviceID string) (*entitlement.CodeDevice, error) {
	for _, docID := range []string{entitlement.CompositeDeviceDocID(uid, deviceID), deviceID, uid} {
		binding, err := uc.codeDeviceRepo.GetByDocID(ctx, codeID, docID)
		if err == nil {
			return binding, nil
		}
		if !errors.IsNotFoundError(err) {
			return nil, err
		}
	}

	binding, err := uc.codeDeviceRepo.FindByDeviceID(ctx, codeID, deviceID)
	if err == nil {
		return binding, nil
	}
	if !errors.IsNotFoundError(err) {
		return nil, err
	}

	binding, err = uc.codeDeviceRepo.FindByUID(ctx, codeID, uid)
	if err == nil {
		return binding, nil
	}
	if !errors.IsNotFoundError(err) {
		return nil, err
	}

	return nil, nil
}

// reconcile runs the downgrade check outside the release transaction.
// Failures are logged; the release already committed and stays successful.
func (uc *ReleaseDeviceUseCase) reconcile(ctx context.Context, uid string) bool {
	downgraded, err := uc.reconciler.Reconcile(ctx, uid)
	if err != nil {
		uc.logger.Warnw("post-release reconciliation failed", "uid", uid, "error", err)
		return false
	}
	return downgraded
}

func (uc *ReleaseDeviceUseCase) invalidateSummary(code string) {
	if uc.summaryCache == nil || code == "" {
		return
	}
	goroutine.SafeGo(uc.logger, "invalidate-slot-summary", func() {
		if err := uc.summaryCache.InvalidateSummary(context.Background(), code); err != nil {
			uc.logger.Warnw("failed to invalidate slot summary cache", "code", code, "error", err)
		}
	})
}
