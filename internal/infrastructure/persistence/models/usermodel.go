package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/nimbus-inc/nimbus/internal/shared/constants"
)

// UserModel represents the subscription-facing projection of a user.
type UserModel struct {
	ID         uint   `gorm:"primarykey"`
	UID        string `gorm:"not null;size:64;uniqueIndex:idx_user_uid"`
	PlanType   string `gorm:"not null;size:32;default:free;index:idx_user_plan"`
	Status     string `gorm:"not null;size:20;default:active"`
	ExpiresAt  *time.Time
	SourceCode string `gorm:"size:64"`
	SourceType string `gorm:"size:10"`
	MaxDevices *int
	LastSeenAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (UserModel) TableName() string {
	return constants.TableUsers
}

// UserDeviceModel represents the user-scoped mirror of device activity.
type UserDeviceModel struct {
	ID           uint   `gorm:"primarykey"`
	UID          string `gorm:"not null;size:64;uniqueIndex:idx_user_device,priority:1;index:idx_user_device_active,priority:1"`
	DeviceID     string `gorm:"not null;size:96;uniqueIndex:idx_user_device,priority:2"`
	IsActive     bool   `gorm:"not null;default:false;index:idx_user_device_active,priority:2"`
	RegisteredAt time.Time
	LastSeenAt   time.Time
	Metadata     datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for GORM
func (UserDeviceModel) TableName() string {
	return constants.TableUserDevices
}

// RedemptionModel marks that a user redeemed a code.
type RedemptionModel struct {
	ID        uint   `gorm:"primarykey"`
	UID       string `gorm:"not null;size:64;uniqueIndex:idx_redemption_uid"`
	Code      string `gorm:"not null;size:64;index:idx_redemption_code"`
	CreatedAt time.Time
}

// TableName specifies the table name for GORM
func (RedemptionModel) TableName() string {
	return constants.TableRedemptions
}
