package entity

import (
	"time"

	"github.com/google/uuid"
)

// OneTimeCode is a short-lived numeric email verification code. At most one
// live code exists per email; issuing a new one deletes prior codes.
type OneTimeCode struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email string    `gorm:"type:varchar(255);not null;index"`

	Code     string `gorm:"type:varchar(6);not null"`
	Attempts int    `gorm:"default:0"`

	ExpiresAt time.Time
	CreatedAt time.Time
}
