package usecases

import (
	"context"
	"fmt"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/dto"
	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	domainshared "github.com/nimbus-inc/nimbus/internal/domain/shared"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/shared/biztime"
	"github.com/nimbus-inc/nimbus/internal/shared/constants"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

type ApplyTokenCommand struct {
	UID      string
	Token    string
	DeviceID string
}

// ApplyTokenUseCase binds a user to a duration-style token grant. The token's
// device list, the user's subscription block and the device activation marker
// are written in one transaction.
type ApplyTokenUseCase struct {
	directory      entitlement.Directory
	tokenRepo      entitlement.TokenRepository
	userRepo       user.Repository
	userDeviceRepo user.DeviceRepository
	txManager      *db.TransactionManager
	maxRetries     int
	logger         logger.Interface
}

func NewApplyTokenUseCase(
	directory entitlement.Directory,
	tokenRepo entitlement.TokenRepository,
	userRepo user.Repository,
	userDeviceRepo user.DeviceRepository,
	txManager *db.TransactionManager,
	maxRetries int,
	logger logger.Interface,
) *ApplyTokenUseCase {
	return &ApplyTokenUseCase{
		directory:      directory,
		tokenRepo:      tokenRepo,
		userRepo:       userRepo,
		userDeviceRepo: userDeviceRepo,
		txManager:      txManager,
		maxRetries:     maxRetries,
		logger:         logger,
	}
}

func (uc *ApplyTokenUseCase) Execute(ctx context.Context, cmd ApplyTokenCommand) (*dto.ApplyTokenResult, error) {
	if cmd.UID == "" || cmd.DeviceID == "" {
		return nil, errors.NewValidationError("uid and device_id are required")
	}

	var result *dto.ApplyTokenResult
	err := runLedgerTx(ctx, uc.txManager, uc.maxRetries, uc.logger, func(txCtx context.Context) error {
		token, err := uc.directory.ResolveToken(txCtx, cmd.Token)
		if err != nil {
			return err
		}

		now := biztime.NowUTC()
		if err := token.Validate(now); err != nil {
			return err
		}

		alreadyListed, err := token.Apply(cmd.DeviceID, now)
		if err != nil {
			return err
		}

		if err := uc.tokenRepo.Update(txCtx, token); err != nil {
			return err
		}

		usr, err := uc.ensureUser(txCtx, cmd.UID)
		if err != nil {
			return err
		}

		expiry := entitlement.ExtendedExpiry(now, usr.ExpiresAt(), token.DurationDays())
		maxDevices := token.MaxDevices()
		var maxDevicesRef *int
		if maxDevices > 0 {
			maxDevicesRef = &maxDevices
		}
		usr.ApplySubscription(token.Type(), expiry, token.Token(), constants.SourceTypeToken, maxDevicesRef, now)
		if err := uc.userRepo.Update(txCtx, usr); err != nil {
			return err
		}

		if err := activateUserMirror(txCtx, uc.userDeviceRepo, cmd.UID, cmd.DeviceID, domainshared.DeviceMetadata{}, now); err != nil {
			return err
		}

		result = &dto.ApplyTokenResult{
			Plan:           token.Type(),
			DurationDays:   token.DurationDays(),
			RemainingSlots: token.RemainingSlots(),
			ExpiryISO:      dto.FormatInstant(expiry),
		}

		uc.logger.Infow("token applied",
			"uid", cmd.UID,
			"device_id", cmd.DeviceID,
			"plan", token.Type(),
			"already_listed", alreadyListed,
			"expiry", result.ExpiryISO,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ensureUser loads the user record or creates a fresh one; grant application
// is an upsert from the user's point of view.
func (uc *ApplyTokenUseCase) ensureUser(ctx context.Context, uid string) (*user.User, error) {
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
