package entity

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	Type    string `gorm:"type:varchar(50);not null"`
	Title   string `gorm:"type:varchar(255);not null"`
	Message string `gorm:"type:text"`
	ReadAt  *time.Time

	CreatedAt time.Time
}
