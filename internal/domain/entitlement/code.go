package entitlement

import (
	"errors"
	"strings"
	"time"
)

// Code is a redeemable, capacity-limited grant. Device bindings live in
// CodeDevice sub-records; activeDevices is the derived counter over them and
// must always equal the number of bindings currently considered active.
type Code struct {
	id            uint
	code          string
	planType      string
	maxDevices    int
	validForDays  int
	activeDevices int
	isUsed        bool
	activatedAt   *time.Time
	expiresAt     *time.Time
	version       int
	createdAt     time.Time
	updatedAt     time.Time
}

// NewCode creates a fresh, never-activated code.
func NewCode(code, planType string, maxDevices, validForDays int) (*Code, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("code cannot be empty")
	}
	if planType == "" {
		return nil, errors.New("plan type cannot be empty")
	}
	if maxDevices < 1 {
		return nil, errors.New("max devices must be at least 1")
	}
	if validForDays < 1 {
		return nil, errors.New("valid-for days must be at least 1")
	}

	now := time.Now().UTC()
	return &Code{
		code:         code,
		planType:     planType,
		maxDevices:   maxDevices,
		validForDays: validForDays,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructCode rebuilds a code aggregate from persistence.
func ReconstructCode(
	id uint,
	code string,
	planType string,
	maxDevices int,
	validForDays int,
	activeDevices int,
	isUsed bool,
	activatedAt *time.Time,
	expiresAt *time.Time,
	version int,
	createdAt time.Time,
	updatedAt time.Time,
) (*Code, error) {
	if id == 0 {
		return nil, errors.New("code ID cannot be zero")
	}
	if code == "" {
		return nil, errors.New("code cannot be empty")
	}

	return &Code{
		id:            id,
		code:          code,
		planType:      planType,
		maxDevices:    maxDevices,
		validForDays:  validForDays,
		activeDevices: activeDevices,
		isUsed:        isUsed,
		activatedAt:   activatedAt,
		expiresAt:     expiresAt,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}, nil
}

// ValidateMeta checks the configured capacity and validity window.
// Codes generated by older tooling can carry zeroed fields; claiming against
// such a code is refused rather than guessed at.
func (c *Code) ValidateMeta() error {
	if c.maxDevices < 1 || c.validForDays < 1 {
		return ErrInvalidCodeMeta()
	}
	return nil
}

// EnsureActivated pins the activation window on first claim. Returns true if
// anything changed. Records that predate the pinned-window guarantee may have
// activatedAt without expiresAt; the missing half is derived (self-healing),
// never recomputed once both are present.
func (c *Code) EnsureActivated(now time.Time) bool {
	if c.activatedAt == nil {
		at := now.UTC()
		exp := ExpiryFromActivation(at, c.validForDays)
		c.activatedAt = &at
		c.expiresAt = &exp
		return true
	}
	if c.expiresAt == nil {
		exp := ExpiryFromActivation(*c.activatedAt, c.validForDays)
		c.expiresAt = &exp
		return true
	}
	return false
}

// IsExpired reports whether the pinned window has passed.
// A never-activated code cannot be expired.
func (c *Code) IsExpired(now time.Time) bool {
	return c.expiresAt != nil && now.After(*c.expiresAt)
}

// RegisterClaim consumes one device slot.
func (c *Code) RegisterClaim() error {
	if CapacityReached(c.activeDevices, c.maxDevices) {
		return ErrDeviceLimitReached()
	}
	c.activeDevices++
	c.isUsed = CapacityReached(c.activeDevices, c.maxDevices)
	return nil
}

// RegisterRelease returns the given number of slots, clamped at zero.
func (c *Code) RegisterRelease(count int) {
	if count <= 0 {
		return
	}
	c.activeDevices -= count
	if c.activeDevices < 0 {
		c.activeDevices = 0
	}
	c.isUsed = CapacityReached(c.activeDevices, c.maxDevices)
}

func (c *Code) ID() uint                { return c.id }
func (c *Code) Code() string            { return c.code }
func (c *Code) PlanType() string        { return c.planType }
func (c *Code) MaxDevices() int         { return c.maxDevices }
func (c *Code) ValidForDays() int       { return c.validForDays }
func (c *Code) ActiveDevices() int      { return c.activeDevices }
func (c *Code) IsUsed() bool            { return c.isUsed }
func (c *Code) ActivatedAt() *time.Time { return c.activatedAt }
func (c *Code) ExpiresAt() *time.Time   { return c.expiresAt }
func (c *Code) Version() int            { return c.version }
func (c *Code) CreatedAt() time.Time    { return c.createdAt }
func (c *Code) UpdatedAt() time.Time    { return c.updatedAt }

func (c *Code) SetID(id uint) error {
	if id == 0 {
		return errors.New("code ID cannot be zero")
	}
	c.id = id
	return nil
}

// BumpVersion advances the optimistic-concurrency version after a successful
// persistence write. Only the repository layer calls this.
func (c *Code) BumpVersion() {
	c.version++
}
