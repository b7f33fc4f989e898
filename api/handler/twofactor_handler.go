package handler

import (
	"net/http"

	"propstake/api/middleware"
	"propstake/internal/dto"
	"propstake/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type TwoFactorHandler struct {
	Service  *service.TwoFactorService
	Validate *validator.Validate
	Log      *logrus.Logger
}

// Setup provisions a TOTP secret. Nothing is enforced until the user
// confirms a code via Enable.
func (h *TwoFactorHandler) Setup(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	secret, uri, err := h.Service.Setup(c.Request().Context(), user)
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.JSON(http.StatusOK, dto.TwoFactorSetupResponse{
		Secret:          secret,
		ProvisioningURI: uri,
	})
}

// Enable confirms the provisioned secret and returns the backup codes.
// This is the only time the codes appear in plaintext.
func (h *TwoFactorHandler) Enable(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req dto.TwoFactorCodeRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	codes, err := h.Service.Enable(c.Request().Context(), userID, req.Code)
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.JSON(http.StatusOK, dto.TwoFactorEnableResponse{BackupCodes: codes})
}

// Disable requires a live TOTP code, not a backup code.
func (h *TwoFactorHandler) Disable(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req dto.TwoFactorCodeRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	}
	if err := h.Service.Disable(c.Request().Context(), userID, req.Code); err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TwoFactorHandler) SetRequireOnLogin(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req dto.TwoFactorRequireRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
	}
	if err := h.Service.SetRequireOnLogin(c.Request().Context(), userID, req.Required); err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.NoContent(http.StatusNoContent)
}
