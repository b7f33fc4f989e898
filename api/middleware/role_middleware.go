package middleware

import (
	"net/http"

	"propstake/internal/entity"

	"github.com/labstack/echo/v4"
)

func RequireRole(roles ...entity.UserRole) echo.MiddlewareFunc {
	allowed := make(map[entity.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := RoleFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
