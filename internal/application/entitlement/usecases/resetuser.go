package usecases

import (
	"context"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/dto"
	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/shared/biztime"
	"github.com/nimbus-inc/nimbus/internal/shared/constants"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/goroutine"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

type ResetUserCommand struct {
	UID string
	// AlsoRemoveRedemption deletes the redemption marker so the same code can
	// be claimed again by this user. Defaults to true at the handler.
	AlsoRemoveRedemption bool
}

// ResetUserUseCase is the administrative full rollback of one user's
// entitlement. The active device set is re-read inside the transaction, so
// the counter decrement always matches the bindings actually flagged.
type ResetUserUseCase struct {
	directory      entitlement.Directory
	codeRepo       entitlement.CodeRepository
	codeDeviceRepo entitlement.CodeDeviceRepository
	userRepo       user.Repository
	userDeviceRepo user.DeviceRepository
	redemptionRepo user.RedemptionRepository
	txManager      *db.TransactionManager
	summaryCache   SummaryInvalidator
	maxRetries     int
	logger         logger.Interface
}

func NewResetUserUseCase(
	directory entitlement.Directory,
	codeRepo entitlement.CodeRepository,
	codeDeviceRepo entitlement.CodeDeviceRepository,
	userRepo user.Repository,
	userDeviceRepo user.DeviceRepository,
	redemptionRepo user.RedemptionRepository,
	txManager *db.TransactionManager,
	summaryCache SummaryInvalidator,
	maxRetries int,
	logger logger.Interface,
) *ResetUserUseCase {
	return &ResetUserUseCase{
		directory:      directory,
		codeRepo:       codeRepo,
		codeDeviceRepo: codeDeviceRepo,
		userRepo:       userRepo,
		userDeviceRepo: userDeviceRepo,
		redemptionRepo: redemptionRepo,
		txManager:      txManager,
		summaryCache:   summaryCache,
		maxRetries:     maxRetries,
		logger:         logger,
	}
}

func (uc *ResetUserUseCase) Execute(ctx context.Context, cmd ResetUserCommand) (*dto.ResetUserResult, error) {
	if cmd.UID == "" {
		return nil, errors.NewValidationError("uid is required")
	}

	var result *dto.ResetUserResult
	var codeString string
	err := runLedgerTx(ctx, uc.txManager, uc.maxRetries, uc.logger, func(txCtx context.Context) error {
		usr, err := uc.userRepo.GetByUID(txCtx, cmd.UID)
		if err != nil {
			return err
		}

		now := biztime.NowUTC()
		cleared := 0

		if usr.SourceType() == constants.SourceTypeCode && usr.SourceCode() != "" {
			code, err := uc.directory.ResolveCode(txCtx, usr.SourceCode())
			if err != nil {
				return err
			}
			codeString = code.Code()

			bindings, err := uc.codeDeviceRepo.ListActiveByUID(txCtx, code.ID(), cmd.UID)
			if err != nil {
				return err
			}
			for _, binding := range bindings {
				binding.Release(now)
				if err := uc.codeDeviceRepo.Save(txCtx, binding); err != nil {
					return err
				}
			}
			cleared = len(bindings)

			if cleared > 0 {
				code.RegisterRelease(cleared)
				if err := uc.codeRepo.Update(txCtx, code); err != nil {
					return err
				}
			}

			if cmd.AlsoRemoveRedemption {
				if err := uc.redemptionRepo.DeleteByUID(txCtx, cmd.UID); err != nil {
					return err
				}
			}
		}

		deactivated, err := uc.userDeviceRepo.DeactivateAllByUID(txCtx, cmd.UID)
		if err != nil {
			return err
		}
		if codeString == "" {
			cleared = int(deactivated)
		}

		usr.DowngradeToFree(now)
		if err := uc.userRepo.Update(txCtx, usr); err != nil {
			return err
		}

		result = &dto.ResetUserResult{
			ClearedDevices: cleared,
			CodeID:         codeString,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateSummary(codeString)

	uc.logger.Infow("user entitlement reset",
		"uid", cmd.UID,
		"code", codeString,
		"cleared_devices", result.ClearedDevices,
		"redemption_removed", cmd.AlsoRemoveRedemption,
	)

	return result, nil
}

func (uc *ResetUserUseCase) invalidateSummary(code string) {
	if uc.summaryCache == nil || code == "" {
		return
	}
	goroutine.SafeGo(uc.logger, "invalidate-slot-summary", func() {
		if err := uc.summaryCache.InvalidateSummary(context.Background(), code); err != nil {
			uc.logger.Warnw("failed to invalidate slot summary cache", "code", code, "error", err)
		}
	})
}
