package usecases

import (
	"context"
	"fmt"
	"time"

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

type ClaimDeviceCommand struct {
	UID        string
	Code       string
	DeviceID   string
	DeviceInfo *dto.DeviceInfo
}

// ClaimDeviceUseCase binds a device to a capacity-limited code. The binding,
// the counter, the user's subscription block and the user-side mirror are all
// written in one transaction; the summary-cache fan-out runs after commit and
// never fails the claim.
type ClaimDeviceUseCase struct {
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

func NewClaimDeviceUseCase(
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
) *ClaimDeviceUseCase {
	return &ClaimDeviceUseCase{
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

func (uc *ClaimDeviceUseCase) Execute(ctx context.Context, cmd ClaimDeviceCommand) (*dto.ClaimDeviceResult, error) {
	if cmd.UID == "" || cmd.DeviceID == "" {
		return nil, errors.NewValidationError("uid and device_id are required")
	}

	var result *dto.ClaimDeviceResult
	var codeString string
	err := runLedgerTx(ctx, uc.txManager, uc.maxRetries, uc.logger, func(txCtx context.Context) error {
		code, err := uc.directory.ResolveCode(txCtx, cmd.Code)
		if err != nil {
			return err
		}
		codeString = code.Code()

		if err := code.ValidateMeta(); err != nil {
			return err
		}

		now := biztime.NowUTC()
		activationChanged := code.EnsureActivated(now)

		if code.IsExpired(now) {
			// No point persisting a healed window here: the business error
			// rolls the transaction back, and the next attempt derives it again.
			return entitlement.ErrCodeExpired()
		}

		metadata := cmd.DeviceInfo.ToMetadata()
		docID := entitlement.CompositeDeviceDocID(cmd.UID, cmd.DeviceID)

		binding, err := uc.codeDeviceRepo.GetByDocID(txCtx, code.ID(), docID)
		if err != nil && !errors.IsNotFoundError(err) {
			return err
		}

		alreadyActive := binding != nil && binding.ConsideredActive()
		if alreadyActive {
			// Idempotent re-claim: no counter change, but the healed
			// activation window is persisted.
			binding.UpdateMetadata(metadata)
			if err := uc.codeDeviceRepo.Save(txCtx, binding); err != nil {
				return err
			}
			if activationChanged {
				if err := uc.codeRepo.Update(txCtx, code); err != nil {
					return err
				}
			}
		} else {
			if err := code.RegisterClaim(); err != nil {
				return err
			}

			if binding == nil {
				binding, err = entitlement.NewCodeDevice(code.ID(), cmd.UID, cmd.DeviceID, metadata, now)
				if err != nil {
					return fmt.Errorf("failed to build device binding: %w", err)
				}
			} else {
				binding.Reactivate(now)
				binding.UpdateMetadata(metadata)
			}
			if err := uc.codeDeviceRepo.Save(txCtx, binding); err != nil {
				return err
			}
			if err := uc.codeRepo.Update(txCtx, code); err != nil {
				return err
			}
		}

		usr, err := uc.ensureUser(txCtx, cmd.UID)
		if err != nil {
			return err
		}
		maxDevices := code.MaxDevices()
		usr.ApplySubscription(code.PlanType(), *code.ExpiresAt(), code.Code(), constants.SourceTypeCode, &maxDevices, now)
		if err := uc.userRepo.Update(txCtx, usr); err != nil {
			return err
		}

		if err := activateUserMirror(txCtx, uc.userDeviceRepo, cmd.UID, cmd.DeviceID, metadata, now); err != nil {
			return err
		}

		if err := uc.recordRedemption(txCtx, cmd.UID, code.Code(), now); err != nil {
			return err
		}

		result = &dto.ClaimDeviceResult{
			ActiveDevices: code.ActiveDevices(),
			MaxDevices:    code.MaxDevices(),
			AlreadyActive: alreadyActive,
			IsUsed:        code.IsUsed(),
			ExpiresAt:     dto.FormatInstant(*code.ExpiresAt()),
		}

		uc.logger.Infow("device claimed",
			"uid", cmd.UID,
			"code", code.Code(),
			"device_id", cmd.DeviceID,
			"active_devices", code.ActiveDevices(),
			"already_active", alreadyActive,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateSummary(codeString)
	return result, nil
}

func (uc *ClaimDeviceUseCase) ensureUser(ctx context.Context, uid string) (*user.User, error) {
	usr, err := uc.userRepo.GetByUID(ctx, uid)
	if err == nil {
		return usr, nil
	}
	if !errors.IsNotFoundError(err) {
		return nil, err
	}

	usr, err = user.NewUser(uid)
	if err != nil {
		return nil, fmt.Errorf("failed to build user: %w", err)
	}
	if err := uc.userRepo.Create(ctx, usr); err != nil {
		return nil, err
	}
	return usr, nil
}

// recordRedemption writes the one-per-user marker noting which code the user
// redeemed. The uid column is uniquely indexed, so a repeat claim hits the
// existing row and the conflict is swallowed.
func (uc *ClaimDeviceUseCase) recordRedemption(ctx context.Context, uid, code string, now time.Time) error {
	redemption, err := user.NewRedemption(uid, code, now)
	if err != nil {
		return fmt.Errorf("failed to build redemption marker: %w", err)
	}
	if err := uc.redemptionRepo.Create(ctx, redemption); err != nil {
		if errors.IsConflictError(err) {
			return nil
		}
		return err
	}
	return nil
}

// invalidateSummary drops the cached slot summary after a committed change.
// Best-effort: a cache failure never fails the claim.
func (uc *ClaimDeviceUseCase) invalidateSummary(code string) {
	if uc.summaryCache == nil || code == "" {
		return
	}
	goroutine.SafeGo(uc.logger, "invalidate-slot-summary", func() {
		if err := uc.summaryCache.InvalidateSummary(context.Background(), code); err != nil {
			uc.logger.Warnw("failed to invalidate slot summary cache", "code", code, "error", err)
		}
	})
}
