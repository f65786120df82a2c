package user

import (
	"errors"
	"time"
)

// Redemption marks that a user has redeemed a specific code. Administrative
// reset can delete the marker so the same code can be claimed again by the
// same user, which is how support re-tests a customer's code.
type Redemption struct {
	id        uint
	uid       string
	code      string
	createdAt time.Time
}

// NewRedemption records a redemption marker.
func NewRedemption(uid, code string, now time.Time) (*Redemption, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty")
	}
	if code == "" {
		return nil, errors.New("code cannot be empty")
	}

	return &Redemption{
		uid:       uid,
		code:      code,
		createdAt: now.UTC(),
	}, nil
}

// ReconstructRedemption rebuilds a marker from persistence.
func ReconstructRedemption(id uint, uid, code string, createdAt time.Time) (*Redemption, error) {
	if id == 0 {
		return nil, errors.New("redemption ID cannot be zero")
	}

	return &Redemption{
		id:        id,
		uid:       uid,
		code:      code,
		createdAt: createdAt,
	}, nil
}

func (r *Redemption) ID() uint             { return r.id }
func (r *Redemption) UID() string          { return r.uid }
func (r *Redemption) Code() string         { return r.code }
func (r *Redemption) CreatedAt() time.Time { return r.createdAt }

func (r *Redemption) SetID(id uint) error {
	if id == 0 {
		return errors.New("redemption ID cannot be zero")
	}
	r.id = id
	return nil
}
