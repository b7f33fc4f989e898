package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TwoFactorSettings holds a user's TOTP material. The row encodes the 2FA
// state machine: no row means disabled, EnabledAt == nil means provisioned
// (secret generated, not yet confirmed), EnabledAt set means enabled.
// Disabling deletes the row, so RequireOnLogin cannot outlive enablement.
type TwoFactorSettings struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	Secret    string `gorm:"type:text;not null"`
	EnabledAt *time.Time

	RequireOnLogin bool `gorm:"default:false"`

	// SHA-256 hashes of the unspent single-use backup codes.
	BackupCodeHashes datatypes.JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *TwoFactorSettings) Enabled() bool {
	return t != nil && t.EnabledAt != nil
}
