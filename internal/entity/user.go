package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser       UserRole = "user"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "superadmin"
)

type User struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email string    `gorm:"type:varchar(255);uniqueIndex;not null"`

	FirstName string   `gorm:"type:varchar(100)"`
	LastName  string   `gorm:"type:varchar(100)"`
	Phone     *string  `gorm:"type:varchar(32)"`
	AvatarURL *string  `gorm:"type:text"`
	Role      UserRole `gorm:"type:user_role;default:'user';not null"`

	EmailVerifiedAt *time.Time
	IsActive        bool `gorm:"default:true"`

	ReferralCode string     `gorm:"type:varchar(16);uniqueIndex;not null"`
	ReferredByID *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Accounts  []Account
	Sessions  []Session
	TwoFactor *TwoFactorSettings
}

func (u *User) DisplayName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
