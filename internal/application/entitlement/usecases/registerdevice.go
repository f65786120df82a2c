package usecases

import (
	"context"
	"fmt"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/dto"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/shared/biztime"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

type RegisterDeviceCommand struct {
	UID        string
	DeviceID   string
	DeviceInfo *dto.DeviceInfo
}

// RegisterDeviceUseCase creates or refreshes a user-side device mirror before
// any claim. A mirror may exist without a code-side binding.
type RegisterDeviceUseCase struct {
	userDeviceRepo user.DeviceRepository
	logger         logger.Interface
}

func NewRegisterDeviceUseCase(
	userDeviceRepo user.DeviceRepository,
	logger logger.Interface,
) *RegisterDeviceUseCase {
	return &RegisterDeviceUseCase{
		userDeviceRepo: userDeviceRepo,
		logger:         logger,
	}
}

func (uc *RegisterDeviceUseCase) Execute(ctx context.Context, cmd RegisterDeviceCommand) (*dto.RegisterDeviceResult, error) {
	if cmd.UID == "" || cmd.DeviceID == "" {
		return nil, errors.NewValidationError("uid and device_id are required")
	}

	now := biztime.NowUTC()
	metadata := cmd.DeviceInfo.ToMetadata()

	mirror, err := uc.userDeviceRepo.Get(ctx, cmd.UID, cmd.DeviceID)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			return nil, err
		}
		mirror, err = user.NewDevice(cmd.UID, cmd.DeviceID, metadata, now)
		if err != nil {
			return nil, fmt.Errorf("failed to build device: %w", err)
		}
		if err := uc.userDeviceRepo.Save(ctx, mirror); err != nil {
			return nil, err
		}
		uc.logger.Infow("device registered", "uid", cmd.UID, "device_id", cmd.DeviceID)
	} else {
		mirror.Touch(now)
		mirror.UpdateMetadata(metadata)
		if err := uc.userDeviceRepo.Save(ctx, mirror); err != nil {
			return nil, err
		}
	}

	return &dto.RegisterDeviceResult{
		DeviceID:     mirror.DeviceID(),
		IsActive:     mirror.IsActive(),
		RegisteredAt: dto.FormatInstant(mirror.RegisteredAt()),
	}, nil
}
