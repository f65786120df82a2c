package user

import (
	"errors"
	"time"

	"github.com/nimbus-inc/nimbus/internal/shared/constants"
)

// User carries the subscription-facing projection of an account. The plan
// fields are written by the entitlement transaction engine and reset by the
// downgrade reconciler; they are non-free only while the user holds at least
// one active device under a non-expired grant.
type User struct {
	id         uint
	uid        string
	planType   string
	status     string
	expiresAt  *time.Time
	sourceCode string
	sourceType string
	maxDevices *int
	lastSeenAt *time.Time
	createdAt  time.Time
	updatedAt  time.Time
}

// NewUser creates an unentitled user record.
func NewUser(uid string) (*User, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		uid:       uid,
		planType:  constants.PlanFree,
		status:    constants.UserStatusActive,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructUser rebuilds a user from persistence.
func ReconstructUser(
	id uint,
	uid string,
	planType string,
	status string,
	expiresAt *time.Time,
	sourceCode string,
	sourceType string,
	maxDevices *int,
	lastSeenAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) (*User, error) {
	if id == 0 {
		return nil, errors.New("user ID cannot be zero")
	}
	if uid == "" {
		return nil, errors.New("uid cannot be empty")
	}
	if planType == "" {
		planType = constants.PlanFree
	}

	return &User{
		id:         id,
		uid:        uid,
		planType:   planType,
		status:     status,
		expiresAt:  expiresAt,
		sourceCode: sourceCode,
		sourceType: sourceType,
		maxDevices: maxDevices,
		lastSeenAt: lastSeenAt,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}, nil
}

// ApplySubscription writes the subscription block after a successful claim
// or token application.
func (u *User) ApplySubscription(planType string, expiresAt time.Time, sourceCode, sourceType string, maxDevices *int, now time.Time) {
	at := now.UTC()
	exp := expiresAt.UTC()
	u.planType = planType
	u.expiresAt = &exp
	u.sourceCode = sourceCode
	u.sourceType = sourceType
	u.maxDevices = maxDevices
	u.lastSeenAt = &at
	u.updatedAt = at
}

// DowngradeToFree resets the projection to the unentitled state. Idempotent:
// reapplying the reset is harmless, which is what makes the best-effort
// reconciliation race safe.
func (u *User) DowngradeToFree(now time.Time) {
	at := now.UTC()
	u.planType = constants.PlanFree
	u.expiresAt = nil
	u.sourceCode = ""
	u.sourceType = ""
	u.maxDevices = nil
	u.lastSeenAt = &at
	u.updatedAt = at
}

// IsEntitled reports whether the user currently holds a paid plan.
func (u *User) IsEntitled() bool {
	return u.planType != "" && u.planType != constants.PlanFree
}

func (u *User) ID() uint               { return u.id }
func (u *User) UID() string            { return u.uid }
func (u *User) PlanType() string       { return u.planType }
func (u *User) Status() string         { return u.status }
func (u *User) ExpiresAt() *time.Time  { return u.expiresAt }
func (u *User) SourceCode() string     { return u.sourceCode }
func (u *User) SourceType() string     { return u.sourceType }
func (u *User) MaxDevices() *int       { return u.maxDevices }
func (u *User) LastSeenAt() *time.Time { return u.lastSeenAt }
func (u *User) CreatedAt() time.Time   { return u.createdAt }
func (u *User) UpdatedAt() time.Time   { return u.updatedAt }

func (u *User) SetID(id uint) error {
	if id == 0 {
		return errors.New("user ID cannot be zero")
	}
	u.id = id
	return nil
}
