package middleware

import (
	"errors"
	"net/http"
	"strings"

	"propstake/internal/dto"
	"propstake/internal/repository"
	"propstake/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const AccessCookieName = "access_token"

type AuthMiddleware struct {
	Tokens *service.TokenManager
	Users  repository.UserRepository
}

// RequireAuth validates the access token (cookie first, then bearer header)
// and loads the user. Expired and malformed tokens get distinct codes so
// clients know whether to refresh silently or force a full re-login.
func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.Tokens == nil || m.Users == nil {
			return unauthorized(c, "INVALID_TOKEN")
		}
		token := extractToken(c)
		if token == "" {
			return unauthorized(c, "INVALID_TOKEN")
		}
		claims, err := m.Tokens.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				return unauthorized(c, "TOKEN_EXPIRED")
			}
			return unauthorized(c, "INVALID_TOKEN")
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return unauthorized(c, "INVALID_TOKEN")
		}
		user, err := m.Users.FindByID(c.Request().Context(), userID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if user == nil || !user.IsActive {
			return unauthorized(c, "INVALID_TOKEN")
		}
		SetAuthContext(c, user)
		return next(c)
	}
}

func unauthorized(c echo.Context, code string) error {
	return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Message: "unauthorized",
		Code:    code,
	})
}

func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(AccessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authorization := c.Request().Header.Get("Authorization")
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
