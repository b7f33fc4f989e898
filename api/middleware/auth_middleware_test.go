package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"propstake/internal/entity"
	"propstake/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserRepo struct {
	user *entity.User
}

func (r *stubUserRepo) Create(context.Context, *entity.User) error { return nil }

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, nil
}

func (r *stubUserRepo) FindByEmail(context.Context, string) (*entity.User, error) {
	return nil, nil
}

func (r *stubUserRepo) FindByReferralCode(context.Context, string) (*entity.User, error) {
	return nil, nil
}

func (r *stubUserRepo) Update(context.Context, *entity.User) error { return nil }

func (r *stubUserRepo) VerifyEmail(context.Context, uuid.UUID) error { return nil }

func (r *stubUserRepo) Deactivate(context.Context, uuid.UUID) error { return nil }

func (r *stubUserRepo) List(context.Context, int, int) ([]entity.User, error) {
	return nil, nil
}

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func middlewareFixture(t *testing.T) (*service.TokenManager, *stubClock, *entity.User, AuthMiddleware) {
	t.Helper()
	clock := &stubClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := &service.TokenManager{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Clock:         clock,
	}
	user := &entity.User{
		ID:       uuid.New(),
		Email:    "ada@example.com",
		Role:     entity.UserRoleUser,
		IsActive: true,
	}
	return tokens, clock, user, AuthMiddleware{Tokens: tokens, Users: &stubUserRepo{user: user}}
}

func runRequireAuth(m AuthMiddleware, configure func(*http.Request)) (*httptest.ResponseRecorder, *entity.User) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	configure(req)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *entity.User
	handler := m.RequireAuth(func(c echo.Context) error {
		seen, _ = UserFromContext(c)
		return c.NoContent(http.StatusOK)
	})
	_ = handler(c)
	return rec, seen
}

func TestRequireAuthFromCookie(t *testing.T) {
	tokens, _, user, m := middlewareFixture(t)
	access, _, err := tokens.SignAccess(user)
	require.NoError(t, err)

	rec, seen := runRequireAuth(m, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: access})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
}

func TestRequireAuthFromBearerHeader(t *testing.T) {
	tokens, _, user, m := middlewareFixture(t)
	access, _, err := tokens.SignAccess(user)
	require.NoError(t, err)

	rec, seen := runRequireAuth(m, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+access)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
}

func TestRequireAuthExpiredVersusInvalid(t *testing.T) {
	tokens, clock, user, m := middlewareFixture(t)
	access, _, err := tokens.SignAccess(user)
	require.NoError(t, err)

	clock.now = clock.now.Add(16 * time.Minute)
	rec, _ := runRequireAuth(m, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: access})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TOKEN_EXPIRED", body["code"])

	rec, _ = runRequireAuth(m, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer garbage")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_TOKEN", body["code"])
}

func TestRequireAuthRejectsInactiveUser(t *testing.T) {
	tokens, _, user, m := middlewareFixture(t)
	access, _, err := tokens.SignAccess(user)
	require.NoError(t, err)
	user.IsActive = false

	rec, _ := runRequireAuth(m, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: access})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthMissingToken(t *testing.T) {
	_, _, _, m := middlewareFixture(t)
	rec, _ := runRequireAuth(m, func(*http.Request) {})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	allow := RequireRole(entity.UserRoleAdmin, entity.UserRoleSuperAdmin)

	call := func(user *entity.User) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if user != nil {
			SetAuthContext(c, user)
		}
		handler := allow(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		err := handler(c)
		if err != nil {
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			return httpErr.Code
		}
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call(&entity.User{ID: uuid.New(), Role: entity.UserRoleAdmin}))
	assert.Equal(t, http.StatusForbidden, call(&entity.User{ID: uuid.New(), Role: entity.UserRoleUser}))
	assert.Equal(t, http.StatusForbidden, call(nil))
}
