package entity

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is a single-use opaque reset token. At most one live
// token exists per email; expired tokens are deleted lazily on lookup.
type PasswordResetToken struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email string    `gorm:"type:varchar(255);not null;index"`

	Token  string     `gorm:"type:text;not null;uniqueIndex"`
	UsedAt *time.Time

	ExpiresAt time.Time
	CreatedAt time.Time
}
