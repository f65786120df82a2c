package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/nimbus-inc/nimbus/internal/shared/constants"
)

// CodeDeviceModel represents a device binding under an entitlement code.
// DocID stores the record id in whatever historical shape it was written
// with (composite uid_deviceID on new rows; bare device id or bare uid on
// rows migrated from older schemas).
type CodeDeviceModel struct {
	ID         uint   `gorm:"primarykey"`
	CodeID     uint   `gorm:"not null;uniqueIndex:idx_code_doc,priority:1;index:idx_code_device,priority:1;index:idx_code_uid,priority:1"`
	DocID      string `gorm:"not null;size:160;uniqueIndex:idx_code_doc,priority:2"`
	UID        string `gorm:"not null;size:64;index:idx_code_uid,priority:2"`
	DeviceID   string `gorm:"not null;size:96;index:idx_code_device,priority:2"`
	IsActive   bool   `gorm:"not null;default:false;index:idx_code_device_active"`
	Status     string `gorm:"size:20"`
	ClaimedAt  *time.Time
	ReleasedAt *time.Time
	Metadata   datatypes.JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (CodeDeviceModel) TableName() string {
	return constants.TableCodeDevices
}
