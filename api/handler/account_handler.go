package handler

import (
	"net/http"
	"strconv"

	"propstake/api/middleware"
	"propstake/internal/dto"
	"propstake/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// AccountHandler covers the authenticated account surface: profile,
// session management and the admin endpoints.
type AccountHandler struct {
	Service *service.AuthService
	Cookies CookieConfig
	Log     *logrus.Logger
}

func (h *AccountHandler) Me(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.Service.GetCurrentUser(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

// ListSessions returns the caller's active sessions, most recent first,
// marking the one backing this request.
func (h *AccountHandler) ListSessions(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	sessions, err := h.Service.ListSessions(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}

	current := readRefreshCookie(c)
	responses := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		isCurrent := current != "" && (s.RefreshToken == current ||
			(s.PrevRefreshToken != nil && *s.PrevRefreshToken == current))
		responses = append(responses, dto.SessionResponseFromEntity(s, isCurrent))
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *AccountHandler) RevokeSession(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid session id", "INVALID_INPUT")
	}
	err = h.Service.RevokeSession(c.Request().Context(), userID, sessionID, readRefreshCookie(c))
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) LogoutAll(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	revoked, err := h.Service.LogoutAll(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	h.Cookies.ClearAuthCookies(c)
	return c.JSON(http.StatusOK, map[string]int64{"revokedSessions": revoked})
}

func (h *AccountHandler) Deactivate(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.Service.DeactivateAccount(c.Request().Context(), userID); err != nil {
		return writeServiceError(c, err, h.Log)
	}
	h.Cookies.ClearAuthCookies(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) AdminListUsers(c echo.Context) error {
	limit := parseQueryInt(c, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	offset := parseQueryInt(c, "offset", 0)
	users, err := h.Service.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.JSON(http.StatusOK, dto.UserResponsesFromEntities(users))
}

// AdminListSecurityLogs returns a user's security audit trail, newest first.
func (h *AccountHandler) AdminListSecurityLogs(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid user id", "INVALID_INPUT")
	}
	limit := parseQueryInt(c, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	logs, err := h.Service.ListSecurityEvents(c.Request().Context(), userID, limit)
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.JSON(http.StatusOK, dto.SecurityLogResponsesFromEntities(logs))
}

func (h *AccountHandler) AdminRevokeUserSessions(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid user id", "INVALID_INPUT")
	}
	revoked, err := h.Service.RevokeUserSessions(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err, h.Log)
	}
	return c.JSON(http.StatusOK, map[string]int64{"revokedSessions": revoked})
}

func parseQueryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
