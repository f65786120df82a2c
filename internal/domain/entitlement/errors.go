package entitlement

import (
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
)

// Machine-readable business codes surfaced to API clients. Clients dispatch
// on these, so they are part of the wire contract and must stay stable.
const (
	ReasonCodeNotFound     = "CODE_NOT_FOUND"
	ReasonInvalidCodeMeta  = "INVALID_CODE_META"
	ReasonCodeExpired      = "CODE_EXPIRED"
	ReasonDeviceLimit      = "DEVICE_LIMIT_REACHED"
	ReasonTokenNotFound    = "TOKEN_NOT_FOUND"
	ReasonTokenInactive    = "TOKEN_INACTIVE"
	ReasonTokenExpired     = "TOKEN_EXPIRED"
	ReasonTokenDeviceLimit = "TOKEN_DEVICE_LIMIT"
	ReasonUserNotFound     = "USER_NOT_FOUND"
)

func ErrCodeNotFound() *errors.AppError {
	return errors.NewNotFoundError("code not found").WithReason(ReasonCodeNotFound)
}

func ErrInvalidCodeMeta() *errors.AppError {
	return errors.NewValidationError("code metadata is invalid").WithReason(ReasonInvalidCodeMeta)
}

func ErrCodeExpired() *errors.AppError {
	return errors.NewConflictError("code has expired").WithReason(ReasonCodeExpired)
}

func ErrDeviceLimitReached() *errors.AppError {
	return errors.NewConflictError("device limit reached").WithReason(ReasonDeviceLimit)
}

func ErrTokenNotFound() *errors.AppError {
	return errors.NewNotFoundError("Token not found").WithReason(ReasonTokenNotFound)
}

func ErrTokenInactive() *errors.AppError {
	return errors.NewConflictError("Token is inactive").WithReason(ReasonTokenInactive)
}

func ErrTokenExpired() *errors.AppError {
	return errors.NewConflictError("Token expired").WithReason(ReasonTokenExpired)
}

func ErrTokenDeviceLimit() *errors.AppError {
	return errors.NewConflictError("No device slots left").WithReason(ReasonTokenDeviceLimit)
}

func ErrUserNotFound() *errors.AppError {
	return errors.NewNotFoundError("user not found").WithReason(ReasonUserNotFound)
}

// reasonVersionConflict never crosses the API boundary; it only lets the
// transaction engine tell an optimistic miss apart from business conflicts.
const reasonVersionConflict = "VERSION_CONFLICT"

// ErrVersionConflict signals an optimistic-concurrency miss on a grant row.
// It is internal to the transaction engine: the usecase retries, and if the
// bound is exhausted the caller sees a generic internal error, never this.
func ErrVersionConflict() *errors.AppError {
	return errors.NewConflictError("concurrent update detected").WithReason(reasonVersionConflict)
}

// IsVersionConflict reports whether err is an optimistic-concurrency miss.
func IsVersionConflict(err error) bool {
	return errors.HasReason(err, reasonVersionConflict)
}
