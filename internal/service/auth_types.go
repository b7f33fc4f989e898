package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	ResetTokenTTL time.Duration
	TOTPIssuer    string
	AppBaseURL    string

	// Signup referral bonuses, in cents.
	ReferrerBonus int64
	ReferredBonus int64
}

type EmailSender interface {
	SendVerificationCode(ctx context.Context, email, code, firstName string) error
	SendPasswordResetLink(ctx context.Context, email, firstName, url string) error
	SendLoginAlert(ctx context.Context, email, device, browser, location, ip string) error
}

type NotificationSink interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, message string) error
}

// GeoResolver turns an IP address into a human-readable location.
// Best-effort: implementations return "Unknown" rather than failing.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) string
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type BcryptPasswordHasher struct {
	Cost int
}

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptPasswordHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
