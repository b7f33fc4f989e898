package middleware

import (
	"propstake/internal/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const contextUserKey = "auth_user"

func SetAuthContext(c echo.Context, user *entity.User) {
	c.Set(contextUserKey, user)
}

func UserFromContext(c echo.Context) (*entity.User, bool) {
	user, ok := c.Get(contextUserKey).(*entity.User)
	return user, ok && user != nil
}

func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	user, ok := UserFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	return user.ID, true
}

func RoleFromContext(c echo.Context) (entity.UserRole, bool) {
	user, ok := UserFromContext(c)
	if !ok {
		return "", false
	}
	return user.Role, true
}
