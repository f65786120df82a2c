package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// DirectoryImpl implements the entitlement.Directory interface.
//
// Resolution is tolerant of legacy data: the raw string is trimmed, then
// tried as-is, uppercased and lowercased against the canonical column, and
// only after all identity lookups miss does it fall back to the legacy
// column. Variant order is fixed so the same input always resolves to the
// same record.
type DirectoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewDirectory creates a new directory resolver instance
func NewDirectory(database *gorm.DB, logger logger.Interface) entitlement.Directory {
	return &DirectoryImpl{
		db:     database,
		logger: logger,
	}
}

// ResolveToken resolves a raw client-supplied token string.
func (r *DirectoryImpl) ResolveToken(ctx context.Context, raw string) (*entitlement.Token, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, entitlement.ErrTokenNotFound()
	}

	tx := db.GetTxFromContext(ctx, r.db)

	for _, candidate := range caseVariants(trimmed) {
		var model models.TokenModel
		err := tx.Where("token = ?", candidate).First(&model).Error
		if err == nil {
			return tokenModelToDomain(&model)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Errorw("failed to resolve token", "error", err)
			return nil, fmt.Errorf("failed to resolve token: %w", err)
		}
	}

	for _, candidate := range caseVariants(trimmed) {
		var model models.TokenModel
		err := tx.Where("legacy_token = ?", candidate).Order("id asc").First(&model).Error
		if err == nil {
			return tokenModelToDomain(&model)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Errorw("failed to resolve token by legacy field", "error", err)
			return nil, fmt.Errorf("failed to resolve token: %w", err)
		}
	}

	return nil, entitlement.ErrTokenNotFound()
}

// ResolveCode resolves a raw client-supplied code string.
func (r *DirectoryImpl) ResolveCode(ctx context.Context, raw string) (*entitlement.Code, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, entitlement.ErrCodeNotFound()
	}

	tx := db.GetTxFromContext(ctx, r.db)

	for _, candidate := range caseVariants(trimmed) {
		var model models.CodeModel
		err := tx.Where("code = ?", candidate).First(&model).Error
		if err == nil {
			return codeModelToDomain(&model)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Errorw("failed to resolve code", "code", candidate, "error", err)
			return nil, fmt.Errorf("failed to resolve code: %w", err)
		}
	}

	for _, candidate := range caseVariants(trimmed) {
		var model models.CodeModel
		err := tx.Where("legacy_code = ?", candidate).Order("id asc").First(&model).Error
		if err == nil {
			return codeModelToDomain(&model)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Errorw("failed to resolve code by legacy field", "code", candidate, "error", err)
			return nil, fmt.Errorf("failed to resolve code: %w", err)
		}
	}

	return nil, entitlement.ErrCodeNotFound()
}

// caseVariants returns the literal, uppercase and lowercase forms of the
// input with duplicates removed, preserving that order.
func caseVariants(value string) []string {
	variants := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for _, candidate := range []string{value, strings.ToUpper(value), strings.ToLower(value)} {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		variants = append(variants, candidate)
	}
	return variants
}
