package entitlement

import (
	"errors"
	"strings"
	"time"
)

// TokenDevice is one entry in a token's embedded device list. Tokens track
// their devices inline rather than in sub-records; the list length is the
// capacity counter for this grant family.
type TokenDevice struct {
	DeviceID     string    `json:"device_id"`
	FirstSeenAt  time.Time `json:"first_seen_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Token is a duration-style grant: applying it extends the user's
// subscription by durationDays from the later of now and the current expiry.
type Token struct {
	id           uint
	token        string
	tokenType    string
	durationDays int
	maxDevices   int // 0 means unlimited
	isActive     bool
	isUsed       bool
	expiresAt    *time.Time // redeemable-until; nil means no deadline
	devices      []TokenDevice
	version      int
	createdAt    time.Time
	updatedAt    time.Time
}

// NewToken creates a fresh token grant.
func NewToken(token, tokenType string, durationDays, maxDevices int, expiresAt *time.Time) (*Token, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}
	if tokenType == "" {
		return nil, errors.New("token type cannot be empty")
	}
	if durationDays < 1 {
		return nil, errors.New("duration days must be at least 1")
	}
	if maxDevices < 0 {
		return nil, errors.New("max devices cannot be negative")
	}

	now := time.Now().UTC()
	return &Token{
		token:        token,
		tokenType:    tokenType,
		durationDays: durationDays,
		maxDevices:   maxDevices,
		isActive:     true,
		expiresAt:    expiresAt,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructToken rebuilds a token aggregate from persistence.
func ReconstructToken(
	id uint,
	token string,
	tokenType string,
	durationDays int,
	maxDevices int,
	isActive bool,
	isUsed bool,
	expiresAt *time.Time,
	devices []TokenDevice,
	version int,
	createdAt time.Time,
	updatedAt time.Time,
) (*Token, error) {
	if id == 0 {
		return nil, errors.New("token ID cannot be zero")
	}
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}

	return &Token{
		id:           id,
		token:        token,
		tokenType:    tokenType,
		durationDays: durationDays,
		maxDevices:   maxDevices,
		isActive:     isActive,
		isUsed:       isUsed,
		expiresAt:    expiresAt,
		devices:      devices,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

// Validate checks the token can be applied at all.
func (t *Token) Validate(now time.Time) error {
	if !t.isActive {
		return ErrTokenInactive()
	}
	if t.durationDays < 1 || t.tokenType == "" {
		return ErrTokenInactive()
	}
	if t.expiresAt != nil && now.After(*t.expiresAt) {
		return ErrTokenExpired()
	}
	return nil
}

// Apply binds a device to the token's list. Re-applying with a device that is
// already listed refreshes its last-active stamp and duplicates nothing.
// A single-device token is marked fully used by its first activation.
func (t *Token) Apply(deviceID string, now time.Time) (alreadyListed bool, err error) {
	at := now.UTC()
	for i := range t.devices {
		if t.devices[i].DeviceID == deviceID {
			t.devices[i].LastActiveAt = at
			t.updatedAt = at
			return true, nil
		}
	}

	if t.maxDevices > 0 && len(t.devices) >= t.maxDevices {
		return false, ErrTokenDeviceLimit()
	}

	t.devices = append(t.devices, TokenDevice{
		DeviceID:     deviceID,
		FirstSeenAt:  at,
		LastActiveAt: at,
	})
	if t.maxDevices == 1 {
		t.isUsed = true
	}
	t.updatedAt = at
	return false, nil
}

// RemainingSlots returns the number of free device slots, or nil if the token
// is unlimited.
func (t *Token) RemainingSlots() *int {
	if t.maxDevices <= 0 {
		return nil
	}
	remaining := t.maxDevices - len(t.devices)
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

func (t *Token) ID() uint               { return t.id }
func (t *Token) Token() string          { return t.token }
func (t *Token) Type() string           { return t.tokenType }
func (t *Token) DurationDays() int      { return t.durationDays }
func (t *Token) MaxDevices() int        { return t.maxDevices }
func (t *Token) IsActive() bool         { return t.isActive }
func (t *Token) IsUsed() bool           { return t.isUsed }
func (t *Token) ExpiresAt() *time.Time  { return t.expiresAt }
func (t *Token) Devices() []TokenDevice { return t.devices }
func (t *Token) Version() int           { return t.version }
func (t *Token) CreatedAt() time.Time   { return t.createdAt }
func (t *Token) UpdatedAt() time.Time   { return t.updatedAt }

func (t *Token) SetID(id uint) error {
	if id == 0 {
		return errors.New("token ID cannot be zero")
	}
	t.id = id
	return nil
}

// BumpVersion advances the optimistic-concurrency version after a successful
// persistence write. Only the repository layer calls this.
func (t *Token) BumpVersion() {
	t.version++
}
