package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/nimbus-inc/nimbus/internal/shared/constants"
)

// TokenModel represents a duration-style token grant. The device list is
// embedded as JSON, mirroring the token family's array-valued ledger.
type TokenModel struct {
	ID           uint   `gorm:"primarykey"`
	Token        string `gorm:"not null;size:64;uniqueIndex:idx_token"`
	LegacyToken  string `gorm:"size:64;index:idx_legacy_token"`
	TokenType    string `gorm:"not null;size:32"`
	DurationDays int    `gorm:"not null;default:0"`
	MaxDevices   int    `gorm:"not null;default:0"`
	IsActive     bool   `gorm:"not null;default:true"`
	IsUsed       bool   `gorm:"not null;default:false"`
	ExpiresAt    *time.Time
	Devices      datatypes.JSON
	Version      int `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for GORM
func (TokenModel) TableName() string {
	return constants.TableRedeemTokens
}
