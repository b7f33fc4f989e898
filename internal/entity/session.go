package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is one logical login on one device. Sessions are never deleted;
// revocation stamps RevokedAt. PrevRefreshToken is populated only during the
// post-rotation grace window.
type Session struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	RefreshToken     string  `gorm:"type:text;not null;uniqueIndex"`
	PrevRefreshToken *string `gorm:"type:text;index"`
	TokenRotatedAt   *time.Time

	Device    string  `gorm:"type:varchar(50);not null"`
	Browser   string  `gorm:"type:varchar(50);not null"`
	IPAddress *string `gorm:"type:varchar(45)"`
	Location  string  `gorm:"type:varchar(255);default:'Unknown'"`

	LastActiveAt time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time

	CreatedAt time.Time
}

func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

func (s *Session) SameDevice(device, browser string) bool {
	return s.Device == device && s.Browser == browser
}
