package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"propstake/internal/dto"
	"propstake/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"email exists", service.ErrEmailAlreadyRegistered, http.StatusConflict, "EMAIL_EXISTS"},
		{"expired token", service.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"invalid token", service.ErrTokenInvalid, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"reuse detected", service.ErrSessionReuseDetected, http.StatusUnauthorized, "SESSION_REVOKED"},
		{"otp attempts", service.ErrTooManyOtpAttempts, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS"},
		{"cannot revoke current", service.ErrCannotRevokeCurrent, http.StatusBadRequest, "CANNOT_REVOKE_CURRENT"},
		{"reset token used", service.ErrResetTokenUsed, http.StatusBadRequest, "RESET_TOKEN_USED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext(t)
			require.NoError(t, writeServiceError(c, tt.err, nil))
			assert.Equal(t, tt.status, rec.Code)

			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestWriteServiceErrorConflict(t *testing.T) {
	c, rec := newTestContext(t)
	err := &service.SessionConflictError{
		Existing:  service.SessionSummary{Device: "Desktop", Browser: "Chrome", Location: "Berlin"},
		Attempted: service.DeviceSummary{Device: "Mobile", Browser: "Safari", Location: "Paris"},
	}
	require.NoError(t, writeServiceError(c, err, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body dto.ConflictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.RequiresForceLogin)
	assert.Equal(t, "Desktop", body.ExistingSession.Device)
	assert.Equal(t, "Mobile", body.NewDevice.Device)
}

func TestWriteServiceErrorVerificationFlags(t *testing.T) {
	c, rec := newTestContext(t)
	require.NoError(t, writeServiceError(c, service.ErrEmailNotVerified, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.RequiresVerification)

	c, rec = newTestContext(t)
	require.NoError(t, writeServiceError(c, service.ErrTwoFactorRequired, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.RequiresTwoFactor)
}

func TestAuthCookies(t *testing.T) {
	c, rec := newTestContext(t)
	cfg := CookieConfig{Secure: true}
	cfg.SetAuthCookies(c, &service.TokenPair{
		AccessToken:  "access",
		AccessTTL:    15 * time.Minute,
		RefreshToken: "refresh",
		RefreshTTL:   7 * 24 * time.Hour,
	})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	byName := map[string]*http.Cookie{}
	for _, cookie := range cookies {
		byName[cookie.Name] = cookie
	}

	access := byName[AccessCookieName]
	require.NotNil(t, access)
	assert.Equal(t, "access", access.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, int((15 * time.Minute).Seconds()), access.MaxAge)

	refresh := byName[RefreshCookieName]
	require.NotNil(t, refresh)
	assert.Equal(t, "refresh", refresh.Value)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), refresh.MaxAge)
}

func TestClearAuthCookies(t *testing.T) {
	c, rec := newTestContext(t)
	CookieConfig{}.ClearAuthCookies(c)

	for _, cookie := range rec.Result().Cookies() {
		assert.Empty(t, cookie.Value)
		assert.Less(t, cookie.MaxAge, 0)
	}
	assert.Len(t, rec.Result().Cookies(), 2)
}
