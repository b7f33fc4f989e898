package dto

import (
	"encoding/json"
	"time"

	"propstake/internal/entity"
	"propstake/internal/service"
)

type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"omitempty,max=100"`
	Phone        string `json:"phone" validate:"omitempty,max=32"`
	ReferralCode string `json:"referralCode" validate:"omitempty,max=16"`
}

type VerifyOtpRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResendOtpRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TwoFactorLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

type ForceLoginRequest struct {
	Email      string `json:"email" validate:"omitempty,email"`
	Password   string `json:"password" validate:"omitempty"`
	Credential string `json:"credential" validate:"omitempty"`
	Code       string `json:"code" validate:"omitempty"`
}

type GoogleLoginRequest struct {
	Credential   string `json:"credential" validate:"required"`
	ReferralCode string `json:"referralCode" validate:"omitempty,max=16"`
	Code         string `json:"code" validate:"omitempty"`
}

type PasswordForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type TwoFactorRequireRequest struct {
	Required bool `json:"required"`
}

type TwoFactorSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioningUri"`
}

type TwoFactorEnableResponse struct {
	BackupCodes []string `json:"backupCodes"`
}

type LoginResponse struct {
	User              *UserResponse `json:"user,omitempty"`
	ExpiresIn         int64         `json:"expiresIn,omitempty"`
	RequiresTwoFactor bool          `json:"requiresTwoFactor,omitempty"`
	Email             string        `json:"email,omitempty"`
	DisplacedSessions int64         `json:"displacedSessions,omitempty"`
}

type ConflictResponse struct {
	RequiresForceLogin bool                   `json:"requiresForceLogin"`
	ExistingSession    service.SessionSummary `json:"existingSession"`
	NewDevice          service.DeviceSummary  `json:"newDevice"`
}

type ErrorResponse struct {
	Message              string `json:"message"`
	Code                 string `json:"code,omitempty"`
	RequiresVerification bool   `json:"requiresVerification,omitempty"`
	RequiresTwoFactor    bool   `json:"requiresTwoFactor,omitempty"`
}

type SessionResponse struct {
	ID         string    `json:"id"`
	Device     string    `json:"device"`
	Browser    string    `json:"browser"`
	Location   string    `json:"location"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	LastActive time.Time `json:"lastActive"`
	Current    bool      `json:"current"`
	CreatedAt  time.Time `json:"createdAt"`
}

func SessionResponseFromEntity(s *entity.Session, current bool) SessionResponse {
	response := SessionResponse{
		ID:         s.ID.String(),
		Device:     s.Device,
		Browser:    s.Browser,
		Location:   s.Location,
		LastActive: s.LastActiveAt,
		Current:    current,
		CreatedAt:  s.CreatedAt,
	}
	if s.IPAddress != nil {
		response.IPAddress = *s.IPAddress
	}
	return response
}

type UserResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	AvatarURL       string     `json:"avatarUrl,omitempty"`
	Role            string     `json:"role"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	ReferralCode    string     `json:"referralCode"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func UserResponseFromEntity(user *entity.User) UserResponse {
	response := UserResponse{
		ID:              user.ID.String(),
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Role:            string(user.Role),
		EmailVerifiedAt: user.EmailVerifiedAt,
		ReferralCode:    user.ReferralCode,
		IsActive:        user.IsActive,
		CreatedAt:       user.CreatedAt,
	}
	if user.AvatarURL != nil {
		response.AvatarURL = *user.AvatarURL
	}
	return response
}

func UserResponsesFromEntities(users []entity.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, UserResponseFromEntity(&users[i]))
	}
	return responses
}

type SecurityLogResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	IPAddress string          `json:"ipAddress,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func SecurityLogResponseFromEntity(log *entity.SecurityLog) SecurityLogResponse {
	response := SecurityLogResponse{
		ID:        log.ID.String(),
		Action:    string(log.Action),
		Metadata:  json.RawMessage(log.Metadata),
		CreatedAt: log.CreatedAt,
	}
	if log.IPAddress != nil {
		response.IPAddress = *log.IPAddress
	}
	return response
}

func SecurityLogResponsesFromEntities(logs []entity.SecurityLog) []SecurityLogResponse {
	responses := make([]SecurityLogResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, SecurityLogResponseFromEntity(&logs[i]))
	}
	return responses
}
