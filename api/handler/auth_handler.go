package handler

import (
	"errors"
	"net/http"

	"propstake/internal/dto"
	"propstake/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// AuthHandler exposes the registration, verification, login, refresh and
// password-reset endpoints. Tokens travel in httpOnly cookies; response
// bodies only carry user data and flow flags.
type AuthHandler struct {
	Service  *service.AuthService
	Validate *validator.Validate
	Cookies  CookieConfig
	Log      *logrus.Logger
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	err := h.Service.Register(c.Request().Context(), service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"message": "verification code sent",
	})
}

func (h *AuthHandler) VerifyOtp(c echo.Context) error {
	var req dto.VerifyOtpRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	result, err := h.Service.VerifyOtp(c.Request().Context(), req.Email, req.Code, deviceContext(c))
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return h.writeLogin(c, http.StatusOK, result)
}

func (h *AuthHandler) ResendOtp(c echo.Context) error {
	var req dto.ResendOtpRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	if err := h.Service.ResendOtp(c.Request().Context(), req.Email); err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "if the account exists, a code was sent",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	result, err := h.Service.Login(c.Request().Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Device:   deviceContext(c),
	})
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return h.writeLogin(c, http.StatusOK, result)
}

func (h *AuthHandler) LoginTwoFactor(c echo.Context) error {
	var req dto.TwoFactorLoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	result, err := h.Service.LoginWithTwoFactor(c.Request().Context(), service.TwoFactorLoginInput{
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
		Device:   deviceContext(c),
	})
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return h.writeLogin(c, http.StatusOK, result)
}

func (h *AuthHandler) ForceLogin(c echo.Context) error {
	var req dto.ForceLoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	if req.Credential == "" && (req.Email == "" || req.Password == "") {
		return writeError(c, http.StatusBadRequest, "credentials required", "INVALID_INPUT")
	}
	result, err := h.Service.ForceLogin(c.Request().Context(), service.ForceLoginInput{
		Email:       req.Email,
		Password:    req.Password,
		GoogleToken: req.Credential,
		Code:        req.Code,
		Device:      deviceContext(c),
	})
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return h.writeLogin(c, http.StatusOK, result)
}

func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req dto.GoogleLoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	result, err := h.Service.LoginWithGoogle(c.Request().Context(), service.GoogleLoginInput{
		IDToken:      req.Credential,
		ReferralCode: req.ReferralCode,
		Code:         req.Code,
		Device:       deviceContext(c),
	})
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return h.writeLogin(c, http.StatusOK, result)
}

// Refresh rotates the session behind the refresh cookie. Any terminal
// failure clears both cookies so the client falls back to a full login.
func (h *AuthHandler) Refresh(c echo.Context) error {
	token := readRefreshCookie(c)
	if token == "" {
		return writeError(c, http.StatusUnauthorized, "missing refresh token", "INVALID_TOKEN")
	}
	result, err := h.Service.Refresh(c.Request().Context(), token)
	if err != nil {
		if isTerminalRefreshError(err) {
			h.Cookies.ClearAuthCookies(c)
		}
		return writeServiceError(c, err, h.Log)
	}
	h.Cookies.SetAuthCookies(c, result.Tokens)
	return c.JSON(http.StatusOK, dto.LoginResponse{
		ExpiresIn: int64(result.Tokens.AccessTTL.Seconds()),
	})
}

// Logout is idempotent: a missing or already-revoked session still clears
// cookies and returns success.
func (h *AuthHandler) Logout(c echo.Context) error {
	if token := readRefreshCookie(c); token != "" {
		if err := h.Service.Logout(c.Request().Context(), token); err != nil {
			h.Log.WithError(err).Warn("logout failed")
		}
	}
	h.Cookies.ClearAuthCookies(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) PasswordForgot(c echo.Context) error {
	var req dto.PasswordForgotRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	if err := h.Service.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "if the account exists, a reset link was sent",
	})
}

func (h *AuthHandler) PasswordReset(c echo.Context) error {
	var req dto.PasswordResetRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	if err := h.Service.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) writeLogin(c echo.Context, status int, result *service.LoginResult) error {
	if result.TwoFactorRequired {
		return c.JSON(http.StatusOK, dto.LoginResponse{
			RequiresTwoFactor: true,
			Email:             result.Email,
		})
	}
	h.Cookies.SetAuthCookies(c, result.Tokens)
	user := dto.UserResponseFromEntity(result.User)
	return c.JSON(status, dto.LoginResponse{
		User:              &user,
		ExpiresIn:         int64(result.Tokens.AccessTTL.Seconds()),
		DisplacedSessions: result.Displaced,
	})
}

func isTerminalRefreshError(err error) bool {
	return errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenInvalid) ||
		errors.Is(err, service.ErrSessionRevoked) ||
		errors.Is(err, service.ErrSessionReuseDetected) ||
		errors.Is(err, service.ErrSessionNotFound)
}

func deviceContext(c echo.Context) service.DeviceContext {
	return service.DeviceContext{
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	}
}
