package handler

import (
	"net/http"

	"propstake/internal/service"

	"github.com/labstack/echo/v4"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

type CookieConfig struct {
	Domain string
	Secure bool
}

func (cfg CookieConfig) SetAuthCookies(c echo.Context, pair *service.TokenPair) {
	if pair == nil {
		return
	}
	cfg.set(c, AccessCookieName, pair.AccessToken, int(pair.AccessTTL.Seconds()))
	cfg.set(c, RefreshCookieName, pair.RefreshToken, int(pair.RefreshTTL.Seconds()))
}

func (cfg CookieConfig) ClearAuthCookies(c echo.Context) {
	cfg.set(c, AccessCookieName, "", -1)
	cfg.set(c, RefreshCookieName, "", -1)
}

func (cfg CookieConfig) set(c echo.Context, name, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func readRefreshCookie(c echo.Context) string {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
