package entitlement

import (
	"context"
)

// CodeRepository persists capacity-limited codes.
type CodeRepository interface {
	// GetByCode looks up a code by its exact code string.
	GetByCode(ctx context.Context, code string) (*Code, error)
	// GetByID looks up a code by numeric id.
	GetByID(ctx context.Context, id uint) (*Code, error)
	// Create inserts a new code.
	Create(ctx context.Context, code *Code) error
	// Update writes the aggregate back with an optimistic version check.
	// Returns a conflict error when the row changed concurrently; callers
	// inside the transaction engine retry the whole transaction.
	Update(ctx context.Context, code *Code) error
}

// CodeDeviceRepository persists device bindings under a code.
type CodeDeviceRepository interface {
	// GetByDocID resolves a binding by record id (any historical shape).
	GetByDocID(ctx context.Context, codeID uint, docID string) (*CodeDevice, error)
	// FindByDeviceID is the field-search fallback by client device id.
	FindByDeviceID(ctx context.Context, codeID uint, deviceID string) (*CodeDevice, error)
	// FindByUID is the last-resort field-search fallback by owning user.
	FindByUID(ctx context.Context, codeID uint, uid string) (*CodeDevice, error)
	// ListActiveByUID returns the bindings of one user currently considered active.
	ListActiveByUID(ctx context.Context, codeID uint, uid string) ([]*CodeDevice, error)
	// ListActiveBatch returns up to limit active bindings for bulk clears.
	ListActiveBatch(ctx context.Context, codeID uint, limit int) ([]*CodeDevice, error)
	// CountActive counts bindings currently considered active.
	CountActive(ctx context.Context, codeID uint) (int64, error)
	// Save inserts or updates a binding.
	Save(ctx context.Context, device *CodeDevice) error
}

// TokenRepository persists duration-style token grants.
type TokenRepository interface {
	GetByToken(ctx context.Context, token string) (*Token, error)
	Create(ctx context.Context, token *Token) error
	// Update writes the aggregate back with an optimistic version check.
	Update(ctx context.Context, token *Token) error
}

// Directory resolves a raw client-supplied string to a canonical grant
// record. Lookups are read-only and tolerant of case variants; identity
// lookup is tried before the linear field fallback so resolution order is
// deterministic.
type Directory interface {
	ResolveToken(ctx context.Context, raw string) (*Token, error)
	ResolveCode(ctx context.Context, raw string) (*Code, error)
}
