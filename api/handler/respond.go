package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"propstake/internal/dto"
	"propstake/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeError(c echo.Context, status int, message, code string) error {
	return c.JSON(status, dto.ErrorResponse{Message: message, Code: code})
}

// writeServiceError maps the service error taxonomy onto stable HTTP status
// codes and machine-readable codes. Internal detail never reaches the client.
func writeServiceError(c echo.Context, err error, log *logrus.Logger) error {
	var conflict *service.SessionConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, dto.ConflictResponse{
			RequiresForceLogin: true,
			ExistingSession:    conflict.Existing,
			NewDevice:          conflict.Attempted,
		})
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, service.ErrInvalidCredentials):
		return writeError(c, http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return writeError(c, http.StatusConflict, err.Error(), "EMAIL_EXISTS")
	case errors.Is(err, service.ErrEmailNotVerified):
		return c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Message:              err.Error(),
			Code:                 "EMAIL_NOT_VERIFIED",
			RequiresVerification: true,
		})
	case errors.Is(err, service.ErrTwoFactorRequired):
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Message:           err.Error(),
			Code:              "TWO_FACTOR_REQUIRED",
			RequiresTwoFactor: true,
		})
	case errors.Is(err, service.ErrInvalidTwoFactorCode):
		return writeError(c, http.StatusUnauthorized, err.Error(), "INVALID_TWO_FACTOR_CODE")
	case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
		return writeError(c, http.StatusConflict, err.Error(), "TWO_FACTOR_ALREADY_ENABLED")
	case errors.Is(err, service.ErrTwoFactorNotProvisioned),
		errors.Is(err, service.ErrTwoFactorNotEnabled):
		return writeError(c, http.StatusBadRequest, err.Error(), "TWO_FACTOR_NOT_READY")
	case errors.Is(err, service.ErrTokenExpired):
		return writeError(c, http.StatusUnauthorized, err.Error(), "TOKEN_EXPIRED")
	case errors.Is(err, service.ErrTokenInvalid):
		return writeError(c, http.StatusUnauthorized, err.Error(), "INVALID_TOKEN")
	case errors.Is(err, service.ErrSessionReuseDetected),
		errors.Is(err, service.ErrSessionRevoked):
		return writeError(c, http.StatusUnauthorized, err.Error(), "SESSION_REVOKED")
	case errors.Is(err, service.ErrSessionNotFound):
		return writeError(c, http.StatusUnauthorized, err.Error(), "SESSION_NOT_FOUND")
	case errors.Is(err, service.ErrCannotRevokeCurrent):
		return writeError(c, http.StatusBadRequest, err.Error(), "CANNOT_REVOKE_CURRENT")
	case errors.Is(err, service.ErrTooManyOtpAttempts):
		return writeError(c, http.StatusTooManyRequests, err.Error(), "TOO_MANY_ATTEMPTS")
	case errors.Is(err, service.ErrOtpExpired):
		return writeError(c, http.StatusBadRequest, err.Error(), "OTP_EXPIRED")
	case errors.Is(err, service.ErrOtpInvalid):
		return writeError(c, http.StatusBadRequest, err.Error(), "OTP_INVALID")
	case errors.Is(err, service.ErrResetTokenExpired):
		return writeError(c, http.StatusBadRequest, err.Error(), "RESET_TOKEN_EXPIRED")
	case errors.Is(err, service.ErrResetTokenUsed):
		return writeError(c, http.StatusBadRequest, err.Error(), "RESET_TOKEN_USED")
	case errors.Is(err, service.ErrResetTokenInvalid):
		return writeError(c, http.StatusBadRequest, err.Error(), "RESET_TOKEN_INVALID")
	case errors.Is(err, service.ErrUserNotFound):
		return writeError(c, http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	}

	if log != nil {
		log.WithError(err).Error("unhandled service error")
	}
	return writeError(c, http.StatusInternalServerError, "something went wrong", "INTERNAL")
}
