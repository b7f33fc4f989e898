package service

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrEmailAlreadyRegistered = errors.New("email already registered")

	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts alike, so the API response never reveals which.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrEmailNotVerified = errors.New("email not verified")
	ErrUserNotFound     = errors.New("user not found")

	ErrTwoFactorRequired       = errors.New("two-factor code required")
	ErrInvalidTwoFactorCode    = errors.New("invalid two-factor code")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication already enabled")
	ErrTwoFactorNotProvisioned = errors.New("two-factor setup has not been started")
	ErrTwoFactorNotEnabled     = errors.New("two-factor authentication not enabled")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")

	ErrSessionNotFound      = errors.New("session not found or revoked")
	ErrSessionRevoked       = errors.New("session revoked, please log in again")
	ErrSessionReuseDetected = errors.New("session revoked for security, please re-login")
	ErrCannotRevokeCurrent  = errors.New("cannot revoke the current session, log out instead")

	ErrOtpInvalid         = errors.New("invalid or expired verification code")
	ErrOtpExpired         = errors.New("verification code expired, request a new one")
	ErrTooManyOtpAttempts = errors.New("too many failed attempts, request a new code")

	ErrResetTokenInvalid = errors.New("invalid password reset token")
	ErrResetTokenExpired = errors.New("password reset token expired")
	ErrResetTokenUsed    = errors.New("password reset token already used")
)

// SessionSummary describes an existing session in a conflict response.
type SessionSummary struct {
	Device     string    `json:"device"`
	Browser    string    `json:"browser"`
	Location   string    `json:"location"`
	LastActive time.Time `json:"lastActive"`
}

// DeviceSummary describes the device attempting a conflicting login.
type DeviceSummary struct {
	Device   string `json:"device"`
	Browser  string `json:"browser"`
	Location string `json:"location"`
}

// SessionConflictError is returned when a login from an unrecognized device
// finds another device's active session. The caller must force-login to
// displace it.
type SessionConflictError struct {
	Existing  SessionSummary
	Attempted DeviceSummary
}

func (e *SessionConflictError) Error() string {
	return "an active session exists on another device, force login required"
}
