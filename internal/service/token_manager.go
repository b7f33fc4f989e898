package service

import (
	"errors"
	"time"

	"propstake/internal/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenClaims is the one payload shape carried by both token classes.
type TokenClaims struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies access and refresh tokens. The two classes
// use distinct secrets so possession of one cannot forge the other.
type TokenManager struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         Clock
}

func (m *TokenManager) SignAccess(user *entity.User) (string, time.Duration, error) {
	return m.sign(user, m.AccessSecret, m.accessTTL())
}

func (m *TokenManager) SignRefresh(user *entity.User) (string, time.Duration, error) {
	return m.sign(user, m.RefreshSecret, m.refreshTTL())
}

// VerifyAccess reports ErrTokenExpired for well-formed but stale tokens and
// ErrTokenInvalid for everything else, so callers can tell "refresh" apart
// from "force re-login".
func (m *TokenManager) VerifyAccess(token string) (*TokenClaims, error) {
	return m.verify(token, m.AccessSecret)
}

func (m *TokenManager) VerifyRefresh(token string) (*TokenClaims, error) {
	return m.verify(token, m.RefreshSecret)
}

func (m *TokenManager) sign(user *entity.User, secret []byte, ttl time.Duration) (string, time.Duration, error) {
	now := m.now()
	claims := TokenClaims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Name:   user.DisplayName(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.Issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if user.AvatarURL != nil {
		claims.Picture = *user.AvatarURL
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", 0, err
	}
	return signed, ttl, nil
}

func (m *TokenManager) verify(tokenString string, secret []byte) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *TokenManager) accessTTL() time.Duration {
	if m.AccessTTL > 0 {
		return m.AccessTTL
	}
	return DefaultAccessTokenTTL
}

func (m *TokenManager) refreshTTL() time.Duration {
	if m.RefreshTTL > 0 {
		return m.RefreshTTL
	}
	return DefaultRefreshTokenTTL
}

func (m *TokenManager) now() time.Time {
	if m.Clock == nil {
		return time.Now()
	}
	return m.Clock.Now()
}
