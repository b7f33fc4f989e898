package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"propstake/internal/entity"

	"github.com/google/uuid"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// plainHasher keeps password tests fast and deterministic.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (plainHasher) Verify(hash, password string) bool { return hash == "hash:"+password }

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
	clock *fakeClock
}

func newMemUsers(clock *fakeClock) *memUsers {
	return &memUsers{users: map[uuid.UUID]*entity.User{}, clock: clock}
}

func (r *memUsers) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.clock.Now()
	r.users[user.ID] = user
	return nil
}

func (r *memUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (r *memUsers) FindByReferralCode(_ context.Context, code string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ReferralCode == code {
			return user, nil
		}
	}
	return nil, nil
}

func (r *memUsers) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memUsers) VerifyEmail(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[userID]; ok && user.EmailVerifiedAt == nil {
		now := r.clock.Now()
		user.EmailVerifiedAt = &now
	}
	return nil
}

func (r *memUsers) Deactivate(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[userID]; ok {
		user.IsActive = false
	}
	return nil
}

func (r *memUsers) List(_ context.Context, limit, offset int) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]entity.User, 0, len(r.users))
	for _, user := range r.users {
		all = append(all, *user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

type memAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*entity.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: map[uuid.UUID]*entity.Account{}}
}

func (r *memAccounts) Create(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *memAccounts) FindByUserAndProvider(_ context.Context, userID uuid.UUID, provider entity.AccountProvider) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.UserID == userID && account.Provider == provider {
			return account, nil
		}
	}
	return nil, nil
}

func (r *memAccounts) FindByProviderID(_ context.Context, provider entity.AccountProvider, providerID string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Provider == provider && account.ProviderID != nil && *account.ProviderID == providerID {
			return account, nil
		}
	}
	return nil, nil
}

func (r *memAccounts) UpdatePasswordHash(_ context.Context, accountID uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.accounts[accountID]; ok {
		account.PasswordHash = &hash
	}
	return nil
}

func (r *memAccounts) Delete(_ context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, accountID)
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.Session
	clock    *fakeClock
}

func newMemSessions(clock *fakeClock) *memSessions {
	return &memSessions{sessions: map[uuid.UUID]*entity.Session{}, clock: clock}
}

func (r *memSessions) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = r.clock.Now()
	r.sessions[session.ID] = session
	return nil
}

// detach mirrors the gorm repositories, which hand back scanned rows rather
// than aliases into the store. Callers mutate their copy freely.
func detach(session *entity.Session) *entity.Session {
	if session == nil {
		return nil
	}
	row := *session
	return &row
}

func (r *memSessions) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return detach(r.sessions[id]), nil
}

func (r *memSessions) FindByRefreshToken(_ context.Context, token string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.RefreshToken == token {
			return detach(session), nil
		}
	}
	return nil, nil
}

func (r *memSessions) FindByPrevToken(_ context.Context, token string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.PrevRefreshToken != nil && *session.PrevRefreshToken == token {
			return detach(session), nil
		}
	}
	return nil, nil
}

func (r *memSessions) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	var active []entity.Session
	for _, session := range r.sessions {
		if session.UserID == userID && session.Active(now) {
			active = append(active, *session)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActiveAt.After(active[j].LastActiveAt)
	})
	return active, nil
}

func (r *memSessions) Rotate(_ context.Context, sessionID uuid.UUID, newToken string, rotatedAt, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.RevokedAt != nil {
		return nil
	}
	previous := session.RefreshToken
	session.PrevRefreshToken = &previous
	session.RefreshToken = newToken
	session.TokenRotatedAt = &rotatedAt
	session.ExpiresAt = expiresAt
	session.LastActiveAt = rotatedAt
	return nil
}

func (r *memSessions) Touch(_ context.Context, sessionID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[sessionID]; ok {
		session.LastActiveAt = at
	}
	return nil
}

func (r *memSessions) Revoke(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[sessionID]; ok && session.RevokedAt == nil {
		now := r.clock.Now()
		session.RevokedAt = &now
	}
	return nil
}

func (r *memSessions) RevokeAllByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var revoked int64
	now := r.clock.Now()
	for _, session := range r.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			session.RevokedAt = &now
			revoked++
		}
	}
	return revoked, nil
}

func (r *memSessions) CleanupExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.clock.Now().Add(-30 * 24 * time.Hour)
	for id, session := range r.sessions {
		if session.ExpiresAt.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
	return nil
}

type memCodes struct {
	mu    sync.Mutex
	codes map[uuid.UUID]*entity.OneTimeCode
}

func newMemCodes() *memCodes {
	return &memCodes{codes: map[uuid.UUID]*entity.OneTimeCode{}}
}

func (r *memCodes) Create(_ context.Context, code *entity.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	code.CreatedAt = time.Now()
	r.codes[code.ID] = code
	return nil
}

func (r *memCodes) FindLatestByEmail(_ context.Context, email string) (*entity.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.OneTimeCode
	for _, code := range r.codes {
		if code.Email != email {
			continue
		}
		if latest == nil || code.CreatedAt.After(latest.CreatedAt) {
			latest = code
		}
	}
	return latest, nil
}

func (r *memCodes) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code, ok := r.codes[id]; ok {
		code.Attempts++
	}
	return nil
}

func (r *memCodes) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, id)
	return nil
}

func (r *memCodes) DeleteByEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, code := range r.codes {
		if code.Email == email {
			delete(r.codes, id)
		}
	}
	return nil
}

type memResetTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*entity.PasswordResetToken
}

func newMemResetTokens() *memResetTokens {
	return &memResetTokens{tokens: map[uuid.UUID]*entity.PasswordResetToken{}}
}

func (r *memResetTokens) Create(_ context.Context, token *entity.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	r.tokens[token.ID] = token
	return nil
}

func (r *memResetTokens) FindByToken(_ context.Context, token string) (*entity.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.tokens {
		if record.Token == token {
			return record, nil
		}
	}
	return nil, nil
}

func (r *memResetTokens) MarkUsed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.tokens[id]; ok {
		now := time.Now()
		record.UsedAt = &now
	}
	return nil
}

func (r *memResetTokens) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, id)
	return nil
}

func (r *memResetTokens) DeleteByEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, record := range r.tokens {
		if record.Email == email {
			delete(r.tokens, id)
		}
	}
	return nil
}

type memTwoFactor struct {
	mu       sync.Mutex
	settings map[uuid.UUID]*entity.TwoFactorSettings
}

func newMemTwoFactor() *memTwoFactor {
	return &memTwoFactor{settings: map[uuid.UUID]*entity.TwoFactorSettings{}}
}

func (r *memTwoFactor) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.TwoFactorSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings[userID], nil
}

func (r *memTwoFactor) Upsert(_ context.Context, settings *entity.TwoFactorSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.settings[settings.UserID]; ok {
		existing.Secret = settings.Secret
		existing.EnabledAt = settings.EnabledAt
		existing.BackupCodeHashes = settings.BackupCodeHashes
		return nil
	}
	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}
	r.settings[settings.UserID] = settings
	return nil
}

func (r *memTwoFactor) Update(_ context.Context, settings *entity.TwoFactorSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[settings.UserID] = settings
	return nil
}

func (r *memTwoFactor) Delete(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.settings, userID)
	return nil
}

type memSecurityLogs struct {
	mu   sync.Mutex
	logs []entity.SecurityLog
}

func newMemSecurityLogs() *memSecurityLogs { return &memSecurityLogs{} }

func (r *memSecurityLogs) Log(_ context.Context, log *entity.SecurityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *memSecurityLogs) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.SecurityLog
	for _, log := range r.logs {
		if log.UserID != nil && *log.UserID == userID {
			out = append(out, log)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memSecurityLogs) actions() []entity.SecurityAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.SecurityAction, 0, len(r.logs))
	for _, log := range r.logs {
		out = append(out, log.Action)
	}
	return out
}

func (r *memSecurityLogs) has(action entity.SecurityAction) bool {
	for _, a := range r.actions() {
		if a == action {
			return true
		}
	}
	return false
}

type memReferrals struct {
	mu      sync.Mutex
	credits []uuid.UUID
}

func newMemReferrals() *memReferrals { return &memReferrals{} }

func (r *memReferrals) CreditSignupBonus(_ context.Context, referrerID, referredID uuid.UUID, referrerBonus, referredBonus int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credits = append(r.credits, referredID)
	return nil
}

type sentEmail struct {
	Kind string
	To   string
	Code string
	URL  string
}

type recordingEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (s *recordingEmailSender) SendVerificationCode(_ context.Context, email, code, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{Kind: "verification", To: email, Code: code})
	return nil
}

func (s *recordingEmailSender) SendPasswordResetLink(_ context.Context, email, _, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{Kind: "reset", To: email, URL: url})
	return nil
}

func (s *recordingEmailSender) SendLoginAlert(_ context.Context, email, _, _, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{Kind: "login_alert", To: email})
	return nil
}

func (s *recordingEmailSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].Kind == "verification" {
			return s.sent[i].Code
		}
	}
	return ""
}

type staticGeo struct{}

func (staticGeo) Resolve(_ context.Context, _ string) string { return "Testville" }

type fakeGoogleVerifier struct {
	identity *ExternalIdentity
}

func (v *fakeGoogleVerifier) Verify(_ context.Context, token string) (*ExternalIdentity, error) {
	if v.identity == nil || token == "" {
		return nil, ErrTokenInvalid
	}
	return v.identity, nil
}
