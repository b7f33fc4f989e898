package entity

import (
	"time"

	"github.com/google/uuid"
)

// Referral records a completed signup bonus. The referral row, both balance
// credits and both ledger entries are written in one transaction.
type Referral struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReferrerID uuid.UUID `gorm:"type:uuid;not null;index"`
	ReferredID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	// Bonus amounts in cents.
	ReferrerBonus int64 `gorm:"not null"`
	ReferredBonus int64 `gorm:"not null"`

	CreatedAt time.Time
}

type Balance struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	// Amount in cents.
	Amount int64 `gorm:"not null;default:0"`

	UpdatedAt time.Time
}

type LedgerEntry struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`

	Amount      int64  `gorm:"not null"`
	Type        string `gorm:"type:varchar(50);not null"`
	Description string `gorm:"type:text"`

	CreatedAt time.Time
}
