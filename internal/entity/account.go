package entity

import (
	"time"

	"github.com/google/uuid"
)

type AccountProvider string

const (
	ProviderCredentials AccountProvider = "credentials"
	ProviderGoogle      AccountProvider = "google"
)

// Account is one authentication method bound to exactly one user. A user has
// at most one account per provider.
type Account struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_accounts_user_provider"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	Provider   AccountProvider `gorm:"type:account_provider;not null;uniqueIndex:idx_accounts_user_provider"`
	ProviderID *string         `gorm:"type:varchar(255);index"`

	PasswordHash *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
