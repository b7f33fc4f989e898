package routes

import (
	"time"

	"propstake/api/handler"
	"propstake/api/middleware"
	"propstake/internal/entity"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	TwoFactor      *handler.TwoFactorHandler
	Account        *handler.AccountHandler
	AuthMiddleware middleware.AuthMiddleware
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(
	e *echo.Echo,
	auth *handler.AuthHandler,
	twoFactor *handler.TwoFactorHandler,
	account *handler.AccountHandler,
	authMiddleware middleware.AuthMiddleware,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           auth,
		TwoFactor:      twoFactor,
		Account:        account,
		AuthMiddleware: authMiddleware,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo

	e.POST("/auth/register", r.Auth.Register, r.AuthRate.Middleware())
	e.POST("/auth/verify-otp", r.Auth.VerifyOtp, r.AuthRate.Middleware())
	e.POST("/auth/resend-otp", r.Auth.ResendOtp, r.AuthRate.Middleware())
	e.POST("/auth/login", r.Auth.Login, r.LoginRate.Middleware())
	e.POST("/auth/login/2fa", r.Auth.LoginTwoFactor, r.LoginRate.Middleware())
	e.POST("/auth/login/force", r.Auth.ForceLogin, r.LoginRate.Middleware())
	e.POST("/auth/google", r.Auth.GoogleLogin, r.LoginRate.Middleware())
	e.POST("/auth/refresh", r.Auth.Refresh, r.AuthRate.Middleware())
	e.POST("/auth/logout", r.Auth.Logout)
	e.POST("/auth/password/forgot", r.Auth.PasswordForgot, r.LoginRate.Middleware())
	e.POST("/auth/password/reset", r.Auth.PasswordReset, r.AuthRate.Middleware())

	e.POST("/auth/2fa/setup", r.TwoFactor.Setup, r.AuthMiddleware.RequireAuth)
	e.POST("/auth/2fa/enable", r.TwoFactor.Enable, r.AuthMiddleware.RequireAuth)
	e.POST("/auth/2fa/disable", r.TwoFactor.Disable, r.AuthMiddleware.RequireAuth)
	e.PUT("/auth/2fa/require-login", r.TwoFactor.SetRequireOnLogin, r.AuthMiddleware.RequireAuth)

	e.GET("/me", r.Account.Me, r.AuthMiddleware.RequireAuth)
	e.DELETE("/me", r.Account.Deactivate, r.AuthMiddleware.RequireAuth)
	e.GET("/me/sessions", r.Account.ListSessions, r.AuthMiddleware.RequireAuth)
	e.DELETE("/me/sessions/:id", r.Account.RevokeSession, r.AuthMiddleware.RequireAuth)
	e.POST("/me/sessions/logout-all", r.Account.LogoutAll, r.AuthMiddleware.RequireAuth)

	admin := middleware.RequireRole(entity.UserRoleAdmin, entity.UserRoleSuperAdmin)
	e.GET("/admin/users", r.Account.AdminListUsers, r.AuthMiddleware.RequireAuth, admin)
	e.GET("/admin/users/:id/security-logs", r.Account.AdminListSecurityLogs, r.AuthMiddleware.RequireAuth, admin)
	e.POST("/admin/users/:id/revoke-sessions", r.Account.AdminRevokeUserSessions, r.AuthMiddleware.RequireAuth, admin)
}
