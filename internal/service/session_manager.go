package service

import (
	"context"
	"encoding/json"
	"time"

	"propstake/internal/entity"
	"propstake/internal/repository"
	"propstake/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// RotationGraceWindow bounds how long a just-superseded refresh token keeps
// working after a rotation, absorbing benign client races. A presentation of
// the old token after the window is treated as a compromise.
const RotationGraceWindow = 30 * time.Second

// DeviceContext is the raw request metadata a login arrives with.
type DeviceContext struct {
	UserAgent string
	IP        string
}

// TokenPair is what a successful authentication hands back to the client.
type TokenPair struct {
	AccessToken  string
	AccessTTL    time.Duration
	RefreshToken string
	RefreshTTL   time.Duration
}

// SessionManager creates, rotates and revokes sessions. It owns the
// single-active-device policy and the rotation grace window.
type SessionManager struct {
	sessions     repository.SessionRepository
	users        repository.UserRepository
	securityLogs repository.SecurityLogRepository
	tokens       *TokenManager
	geo          GeoResolver
	clock        Clock
	log          *logrus.Logger
}

func NewSessionManager(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	securityLogs repository.SecurityLogRepository,
	tokens *TokenManager,
	geo GeoResolver,
	clock Clock,
	log *logrus.Logger,
) *SessionManager {
	return &SessionManager{
		sessions:     sessions,
		users:        users,
		securityLogs: securityLogs,
		tokens:       tokens,
		geo:          geo,
		clock:        clock,
		log:          log,
	}
}

// Create opens a session for an authenticated user. A re-login from the same
// (device, browser) pair silently replaces all existing sessions; a login
// from a different device while any session is active returns a
// SessionConflictError and creates nothing.
func (m *SessionManager) Create(ctx context.Context, user *entity.User, dev DeviceContext) (*entity.Session, *TokenPair, error) {
	device, browser := utils.ClassifyUserAgent(dev.UserAgent)
	location := m.resolveLocation(ctx, dev.IP)

	active, err := m.sessions.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(active) > 0 {
		sameDevice := false
		for i := range active {
			if active[i].SameDevice(device, browser) {
				sameDevice = true
				break
			}
		}
		if !sameDevice {
			// List is ordered by last activity, so active[0] is the session
			// the user most recently touched.
			return nil, nil, &SessionConflictError{
				Existing: SessionSummary{
					Device:     active[0].Device,
					Browser:    active[0].Browser,
					Location:   active[0].Location,
					LastActive: active[0].LastActiveAt,
				},
				Attempted: DeviceSummary{Device: device, Browser: browser, Location: location},
			}
		}
		if _, err := m.sessions.RevokeAllByUser(ctx, user.ID); err != nil {
			return nil, nil, err
		}
	}
	return m.open(ctx, user, device, browser, location, dev.IP)
}

// ForceCreate displaces every active session regardless of device and opens
// exactly one new session. Credential re-verification is the caller's job
// and must happen before this is invoked.
func (m *SessionManager) ForceCreate(ctx context.Context, user *entity.User, dev DeviceContext) (*entity.Session, *TokenPair, int64, error) {
	device, browser := utils.ClassifyUserAgent(dev.UserAgent)
	location := m.resolveLocation(ctx, dev.IP)

	displaced, err := m.sessions.RevokeAllByUser(ctx, user.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	session, pair, err := m.open(ctx, user, device, browser, location, dev.IP)
	if err != nil {
		return nil, nil, 0, err
	}
	m.audit(ctx, &user.ID, dev.IP, entity.ForceLogin, map[string]any{"displaced": displaced})
	return session, pair, displaced, nil
}

// Refresh implements token rotation with reuse detection. The presented
// token must verify as a refresh JWT, then:
//   - matches a live session's current token: rotate and return a new pair;
//   - matches a live session's previous token within the grace window:
//     reissue an access token against the already-rotated current token;
//   - matches a previous token outside the window: the session is revoked
//     and the call fails as a security incident;
//   - matches a revoked session either way: rejected.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (*entity.Session, *TokenPair, error) {
	if _, err := m.tokens.VerifyRefresh(presented); err != nil {
		return nil, nil, err
	}
	now := m.now()

	session, err := m.sessions.FindByRefreshToken(ctx, presented)
	if err != nil {
		return nil, nil, err
	}
	if session != nil {
		if !session.Active(now) {
			return nil, nil, ErrSessionRevoked
		}
		return m.rotate(ctx, session, now)
	}

	session, err = m.sessions.FindByPrevToken(ctx, presented)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}
	if !session.Active(now) {
		return nil, nil, ErrSessionRevoked
	}
	if session.TokenRotatedAt != nil && now.Sub(*session.TokenRotatedAt) <= RotationGraceWindow {
		return m.reissueWithinGrace(ctx, session, now)
	}

	// Stale token replayed outside its legitimate window: compromise signal.
	if err := m.sessions.Revoke(ctx, session.ID); err != nil {
		return nil, nil, err
	}
	m.audit(ctx, &session.UserID, deref(session.IPAddress), entity.TokenReuse, map[string]any{
		"session_id": session.ID.String(),
	})
	if m.log != nil {
		m.log.WithFields(logrus.Fields{
			"user_id":    session.UserID,
			"session_id": session.ID,
		}).Warn("refresh token reuse detected, session revoked")
	}
	return nil, nil, ErrSessionReuseDetected
}

// RevokeOther terminates one of the user's sessions from a device list. The
// session matching the caller's own refresh token is refused; that exit is
// logout.
func (m *SessionManager) RevokeOther(ctx context.Context, userID, sessionID uuid.UUID, currentRefreshToken string) error {
	session, err := m.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil || session.UserID != userID {
		return ErrSessionNotFound
	}
	if currentRefreshToken != "" && session.RefreshToken == currentRefreshToken {
		return ErrCannotRevokeCurrent
	}
	if err := m.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	m.audit(ctx, &userID, "", entity.SessionRevoked, map[string]any{"session_id": sessionID.String()})
	return nil
}

// Logout is unconditionally idempotent: a missing or unknown token is
// success, not an error.
func (m *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	session, err := m.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if session == nil || session.RevokedAt != nil {
		return nil
	}
	if err := m.sessions.Revoke(ctx, session.ID); err != nil {
		return err
	}
	m.audit(ctx, &session.UserID, deref(session.IPAddress), entity.Logout, nil)
	return nil
}

// RevokeAll terminates every active session for the user. Used by password
// reset, account deactivation and admin action.
func (m *SessionManager) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	revoked, err := m.sessions.RevokeAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if revoked > 0 {
		m.audit(ctx, &userID, "", entity.SessionRevoked, map[string]any{"scope": "all", "count": revoked})
	}
	return revoked, nil
}

func (m *SessionManager) List(ctx context.Context, userID uuid.UUID) ([]entity.Session, error) {
	return m.sessions.ListActiveByUser(ctx, userID)
}

// CleanupExpired drops session rows long past their expiry. Meant to run
// periodically from the process entry point.
func (m *SessionManager) CleanupExpired(ctx context.Context) error {
	return m.sessions.CleanupExpired(ctx)
}

func (m *SessionManager) open(ctx context.Context, user *entity.User, device, browser, location, ip string) (*entity.Session, *TokenPair, error) {
	refreshToken, refreshTTL, err := m.tokens.SignRefresh(user)
	if err != nil {
		return nil, nil, err
	}
	now := m.now()
	session := &entity.Session{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		Device:       device,
		Browser:      browser,
		IPAddress:    optional(ip),
		Location:     location,
		LastActiveAt: now,
		ExpiresAt:    now.Add(refreshTTL),
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, nil, err
	}
	accessToken, accessTTL, err := m.tokens.SignAccess(user)
	if err != nil {
		return nil, nil, err
	}
	return session, &TokenPair{
		AccessToken:  accessToken,
		AccessTTL:    accessTTL,
		RefreshToken: refreshToken,
		RefreshTTL:   refreshTTL,
	}, nil
}

func (m *SessionManager) rotate(ctx context.Context, session *entity.Session, now time.Time) (*entity.Session, *TokenPair, error) {
	user, err := m.activeUser(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	newRefresh, refreshTTL, err := m.tokens.SignRefresh(user)
	if err != nil {
		return nil, nil, err
	}
	// Capture the superseded token before the store swaps it in place.
	previous := session.RefreshToken
	if err := m.sessions.Rotate(ctx, session.ID, newRefresh, now, now.Add(refreshTTL)); err != nil {
		return nil, nil, err
	}
	session.PrevRefreshToken = &previous
	session.RefreshToken = newRefresh
	session.TokenRotatedAt = &now
	session.ExpiresAt = now.Add(refreshTTL)
	session.LastActiveAt = now

	accessToken, accessTTL, err := m.tokens.SignAccess(user)
	if err != nil {
		return nil, nil, err
	}
	return session, &TokenPair{
		AccessToken:  accessToken,
		AccessTTL:    accessTTL,
		RefreshToken: newRefresh,
		RefreshTTL:   refreshTTL,
	}, nil
}

// reissueWithinGrace serves the retry half of a benign rotation race: no
// second rotation, just a fresh access token bound to the already-rotated
// current refresh token.
func (m *SessionManager) reissueWithinGrace(ctx context.Context, session *entity.Session, now time.Time) (*entity.Session, *TokenPair, error) {
	user, err := m.activeUser(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	accessToken, accessTTL, err := m.tokens.SignAccess(user)
	if err != nil {
		return nil, nil, err
	}
	if err := m.sessions.Touch(ctx, session.ID, now); err != nil {
		return nil, nil, err
	}
	return session, &TokenPair{
		AccessToken:  accessToken,
		AccessTTL:    accessTTL,
		RefreshToken: session.RefreshToken,
		RefreshTTL:   session.ExpiresAt.Sub(now),
	}, nil
}

func (m *SessionManager) activeUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrSessionRevoked
	}
	return user, nil
}

func (m *SessionManager) resolveLocation(ctx context.Context, ip string) string {
	if m.geo == nil || ip == "" {
		return "Unknown"
	}
	return m.geo.Resolve(ctx, ip)
}

func (m *SessionManager) audit(ctx context.Context, userID *uuid.UUID, ip string, action entity.SecurityAction, metadata map[string]any) {
	if m.securityLogs == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		if bytes, err := json.Marshal(metadata); err == nil {
			payload = datatypes.JSON(bytes)
		}
	}
	log := &entity.SecurityLog{
		UserID:    userID,
		IPAddress: optional(ip),
		Action:    action,
		Metadata:  payload,
	}
	if err := m.securityLogs.Log(ctx, log); err != nil && m.log != nil {
		m.log.WithError(err).Warn("failed to write security log")
	}
}

func (m *SessionManager) now() time.Time {
	if m.clock == nil {
		return time.Now()
	}
	return m.clock.Now()
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
