package usecases

import (
	"context"
	"time"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/dto"
	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/cache"
	"github.com/nimbus-inc/nimbus/internal/shared/biztime"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

type GetCodeSummaryQuery struct {
	Code string
}

// GetCodeSummaryUseCase serves the read-only capacity summary of a code.
// Out of transactional scope; the cached value is advisory and claims always
// recount inside their own transaction.
type GetCodeSummaryUseCase struct {
	directory    entitlement.Directory
	summaryCache cache.SlotSummaryCache
	cacheTTL     time.Duration
	logger       logger.Interface
}

func NewGetCodeSummaryUseCase(
	directory entitlement.Directory,
	summaryCache cache.SlotSummaryCache,
	cacheTTL time.Duration,
	logger logger.Interface,
) *GetCodeSummaryUseCase {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &GetCodeSummaryUseCase{
		directory:    directory,
		summaryCache: summaryCache,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

func (uc *GetCodeSummaryUseCase) Execute(ctx context.Context, query GetCodeSummaryQuery) (*dto.CodeSummaryResult, error) {
	if cached := uc.fromCache(ctx, query.Code); cached != nil {
		if cached.NotFound {
			return nil, entitlement.ErrCodeNotFound()
		}
		return &dto.CodeSummaryResult{
			Code:          query.Code,
			Plan:          cached.PlanType,
			MaxDevices:    cached.MaxDevices,
			ActiveDevices: cached.ActiveDevices,
			IsUsed:        cached.MaxDevices > 0 && cached.ActiveDevices >= cached.MaxDevices,
			Expired:       cached.Expired,
		}, nil
	}

	code, err := uc.directory.ResolveCode(ctx, query.Code)
	if err != nil {
		uc.cacheNullMarker(ctx, query.Code, err)
		return nil, err
	}

	now := biztime.NowUTC()
	result := &dto.CodeSummaryResult{
		Code:          code.Code(),
		Plan:          code.PlanType(),
		MaxDevices:    code.MaxDevices(),
		ActiveDevices: code.ActiveDevices(),
		IsUsed:        code.IsUsed(),
		Expired:       code.IsExpired(now),
		ExpiresAt:     dto.FormatOptionalInstant(code.ExpiresAt()),
	}

	uc.toCache(ctx, code, result)
	return result, nil
}

func (uc *GetCodeSummaryUseCase) fromCache(ctx context.Context, code string) *cache.CachedSlotSummary {
	if uc.summaryCache == nil {
		return nil
	}
	cached, err := uc.summaryCache.GetSummary(ctx, code)
	if err != nil {
		uc.logger.Warnw("failed to read slot summary cache", "code", code, "error", err)
		return nil
	}
	return cached
}

func (uc *GetCodeSummaryUseCase) toCache(ctx context.Context, code *entitlement.Code, result *dto.CodeSummaryResult) {
	if uc.summaryCache == nil {
		return
	}
	summary := &cache.CachedSlotSummary{
		MaxDevices:    result.MaxDevices,
		ActiveDevices: result.ActiveDevices,
		PlanType:      result.Plan,
		Expired:       result.Expired,
	}
	if err := uc.summaryCache.SetSummary(ctx, code.Code(), summary, uc.cacheTTL); err != nil {
		uc.logger.Warnw("failed to write slot summary cache", "code", code.Code(), "error", err)
	}
}

func (uc *GetCodeSummaryUseCase) cacheNullMarker(ctx context.Context, code string, resolveErr error) {
	if uc.summaryCache == nil {
		return
	}
	if !errors.IsNotFoundError(resolveErr) {
		return
	}
	if err := uc.summaryCache.SetNullMarker(ctx, code); err != nil {
		uc.logger.Warnw("failed to set slot summary null marker", "code", code, "error", err)
	}
}
