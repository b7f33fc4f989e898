package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"propstake/internal/entity"
	"propstake/internal/repository"
	"propstake/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Burned on logins against unknown emails so the response cost matches a
// real bcrypt comparison.
const dummyPasswordHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        string
	ReferralCode string
}

type LoginInput struct {
	Email    string
	Password string
	Device   DeviceContext
}

type TwoFactorLoginInput struct {
	Email    string
	Password string
	Code     string
	Device   DeviceContext
}

type ForceLoginInput struct {
	Email       string
	Password    string
	GoogleToken string
	Code        string
	Device      DeviceContext
}

type GoogleLoginInput struct {
	IDToken      string
	ReferralCode string
	Code         string
	Device       DeviceContext
}

type LoginResult struct {
	User    *entity.User
	Session *entity.Session
	Tokens  *TokenPair

	// Set instead of a session when the user must complete a 2FA step.
	TwoFactorRequired bool
	Email             string

	// Number of sessions displaced by a force login.
	Displaced int64
}

// AuthService orchestrates registration, verification, login (password and
// OAuth), the 2FA step-up, password reset and account deactivation over the
// session manager and its collaborators.
type AuthService struct {
	users       repository.UserRepository
	accounts    repository.AccountRepository
	resetTokens repository.PasswordResetTokenRepository

	otp       *OtpService
	twoFactor *TwoFactorService
	sessions  *SessionManager
	linker    *IdentityLinker
	google    GoogleVerifier

	securityLogs repository.SecurityLogRepository
	email        EmailSender
	notify       NotificationSink
	hasher       PasswordHasher
	referrals    repository.ReferralRepository
	clock        Clock
	config       AuthConfig
	log          *logrus.Logger
}

func NewAuthService(
	users repository.UserRepository,
	accounts repository.AccountRepository,
	resetTokens repository.PasswordResetTokenRepository,
	otp *OtpService,
	twoFactor *TwoFactorService,
	sessions *SessionManager,
	linker *IdentityLinker,
	google GoogleVerifier,
	securityLogs repository.SecurityLogRepository,
	email EmailSender,
	notify NotificationSink,
	hasher PasswordHasher,
	referrals repository.ReferralRepository,
	clock Clock,
	config AuthConfig,
	log *logrus.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		accounts:     accounts,
		resetTokens:  resetTokens,
		otp:          otp,
		twoFactor:    twoFactor,
		sessions:     sessions,
		linker:       linker,
		google:       google,
		securityLogs: securityLogs,
		email:        email,
		notify:       notify,
		hasher:       hasher,
		referrals:    referrals,
		clock:        clock,
		config:       config,
		log:          log,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) error {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" {
		return ErrInvalidInput
	}
	email := utils.NormalizeEmail(input.Email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.EmailVerifiedAt != nil {
			return ErrEmailAlreadyRegistered
		}
		return s.sendVerificationCode(ctx, existing)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return err
	}
	referralCode, err := utils.GenerateReferralCode()
	if err != nil {
		return err
	}

	user := &entity.User{
		Email:        email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         entity.UserRoleUser,
		IsActive:     true,
		ReferralCode: referralCode,
	}
	if strings.TrimSpace(input.Phone) != "" {
		phone := strings.TrimSpace(input.Phone)
		user.Phone = &phone
	}
	if input.ReferralCode != "" {
		referrer, err := s.users.FindByReferralCode(ctx, input.ReferralCode)
		if err != nil {
			return err
		}
		if referrer != nil {
			user.ReferredByID = &referrer.ID
		}
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	account := &entity.Account{
		UserID:       user.ID,
		Provider:     entity.ProviderCredentials,
		PasswordHash: &hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return err
	}
	return s.sendVerificationCode(ctx, user)
}

// VerifyOtp consumes the emailed code, marks the user verified, credits a
// pending referral bonus and opens the first session.
func (s *AuthService) VerifyOtp(ctx context.Context, email, code string, dev DeviceContext) (*LoginResult, error) {
	email = utils.NormalizeEmail(email)
	if err := s.otp.Verify(ctx, email, code); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	firstVerification := user.EmailVerifiedAt == nil
	if firstVerification {
		if err := s.users.VerifyEmail(ctx, user.ID); err != nil {
			return nil, err
		}
		now := s.now()
		user.EmailVerifiedAt = &now

		if user.ReferredByID != nil && s.referrals != nil {
			err := s.referrals.CreditSignupBonus(ctx, *user.ReferredByID, user.ID, s.config.ReferrerBonus, s.config.ReferredBonus)
			if err != nil {
				// The user must end up verified even when crediting fails.
				s.warn(err, "referral bonus credit failed", user.ID)
			}
		}
	}

	session, pair, err := s.sessions.Create(ctx, user, dev)
	if err != nil {
		return nil, err
	}
	s.afterLogin(ctx, user, session, dev)
	return &LoginResult{User: user, Session: session, Tokens: pair}, nil
}

// ResendOtp reissues a verification code. Silently succeeds for unknown
// emails so the endpoint cannot be used for enumeration.
func (s *AuthService) ResendOtp(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.EmailVerifiedAt != nil {
		return nil
	}
	return s.sendVerificationCode(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.authenticate(ctx, input.Email, input.Password, input.Device)
	if err != nil {
		return nil, err
	}
	if user.EmailVerifiedAt == nil {
		if err := s.sendVerificationCode(ctx, user); err != nil {
			s.warn(err, "verification resend failed", user.ID)
		}
		return nil, ErrEmailNotVerified
	}

	required, err := s.twoFactor.RequiredForLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if required {
		return &LoginResult{TwoFactorRequired: true, Email: user.Email}, nil
	}
	return s.openSession(ctx, user, input.Device)
}

// LoginWithTwoFactor completes a 2FA-gated login. Credentials are
// re-validated from scratch; the earlier password check is never trusted.
func (s *AuthService) LoginWithTwoFactor(ctx context.Context, input TwoFactorLoginInput) (*LoginResult, error) {
	user, err := s.authenticate(ctx, input.Email, input.Password, input.Device)
	if err != nil {
		return nil, err
	}
	if user.EmailVerifiedAt == nil {
		return nil, ErrEmailNotVerified
	}
	if !s.twoFactor.VerifyLogin(ctx, user.ID, input.Code) {
		s.audit(ctx, &user.ID, input.Device.IP, entity.TwoFactorFail, nil)
		return nil, ErrInvalidTwoFactorCode
	}
	return s.openSession(ctx, user, input.Device)
}

// ForceLogin re-verifies credentials (and the 2FA step when required) before
// displacing anything: a failed force login leaves existing sessions
// untouched.
func (s *AuthService) ForceLogin(ctx context.Context, input ForceLoginInput) (*LoginResult, error) {
	var user *entity.User
	var err error
	if input.GoogleToken != "" {
		user, err = s.resolveGoogleUser(ctx, input.GoogleToken, "")
	} else {
		user, err = s.authenticate(ctx, input.Email, input.Password, input.Device)
	}
	if err != nil {
		return nil, err
	}
	if user.EmailVerifiedAt == nil {
		return nil, ErrEmailNotVerified
	}

	required, err := s.twoFactor.RequiredForLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if required {
		if input.Code == "" {
			return nil, ErrTwoFactorRequired
		}
		if !s.twoFactor.VerifyLogin(ctx, user.ID, input.Code) {
			s.audit(ctx, &user.ID, input.Device.IP, entity.TwoFactorFail, map[string]any{"force_login": true})
			return nil, ErrInvalidTwoFactorCode
		}
	}

	session, pair, displaced, err := s.sessions.ForceCreate(ctx, user, input.Device)
	if err != nil {
		return nil, err
	}
	if displaced > 0 && s.notify != nil {
		err := s.notify.Notify(ctx, user.ID, "security", "Signed out everywhere",
			"Your other sessions were signed out by a new login.")
		if err != nil {
			s.warn(err, "notification failed", user.ID)
		}
	}
	s.afterLogin(ctx, user, session, input.Device)
	return &LoginResult{User: user, Session: session, Tokens: pair, Displaced: displaced}, nil
}

// LoginWithGoogle handles the OAuth callback: verify the ID token, resolve
// or create the user, then enter the ordinary session-creation path with
// conflict detection and 2FA gating intact.
func (s *AuthService) LoginWithGoogle(ctx context.Context, input GoogleLoginInput) (*LoginResult, error) {
	user, err := s.resolveGoogleUser(ctx, input.IDToken, input.ReferralCode)
	if err != nil {
		return nil, err
	}

	required, err := s.twoFactor.RequiredForLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if required {
		if input.Code == "" {
			return &LoginResult{TwoFactorRequired: true, Email: user.Email}, nil
		}
		if !s.twoFactor.VerifyLogin(ctx, user.ID, input.Code) {
			s.audit(ctx, &user.ID, input.Device.IP, entity.TwoFactorFail, nil)
			return nil, ErrInvalidTwoFactorCode
		}
	}
	return s.openSession(ctx, user, input.Device)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrTokenInvalid
	}
	session, pair, err := s.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: session, Tokens: pair}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Logout(ctx, refreshToken)
}

func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.sessions.RevokeAll(ctx, userID)
}

func (s *AuthService) ListSessions(ctx context.Context, userID uuid.UUID) ([]entity.Session, error) {
	return s.sessions.List(ctx, userID)
}

func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID, currentRefreshToken string) error {
	return s.sessions.RevokeOther(ctx, userID, sessionID, currentRefreshToken)
}

// RequestPasswordReset responds identically for known and unknown emails.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive {
		return nil
	}

	if err := s.resetTokens.DeleteByEmail(ctx, email); err != nil {
		return err
	}
	token, err := utils.GenerateRandomToken(32)
	if err != nil {
		return err
	}
	record := &entity.PasswordResetToken{
		Email:     email,
		Token:     token,
		ExpiresAt: s.now().Add(s.resetTokenTTL()),
	}
	if err := s.resetTokens.Create(ctx, record); err != nil {
		return err
	}

	if s.email != nil {
		url := strings.TrimRight(s.config.AppBaseURL, "/") + "/reset-password?token=" + token
		if err := s.email.SendPasswordResetLink(ctx, email, user.FirstName, url); err != nil {
			s.warn(err, "reset email failed", user.ID)
		}
	}
	s.audit(ctx, &user.ID, "", entity.Reset, map[string]any{"stage": "requested"})
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(newPassword) == "" {
		return ErrInvalidInput
	}
	record, err := s.resetTokens.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrResetTokenInvalid
	}
	if record.UsedAt != nil {
		return ErrResetTokenUsed
	}
	if s.now().After(record.ExpiresAt) {
		if err := s.resetTokens.Delete(ctx, record.ID); err != nil {
			return err
		}
		return ErrResetTokenExpired
	}

	user, err := s.users.FindByEmail(ctx, record.Email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	account, err := s.accounts.FindByUserAndProvider(ctx, user.ID, entity.ProviderCredentials)
	if err != nil {
		return err
	}
	if account == nil {
		// OAuth-only user setting a password for the first time.
		account = &entity.Account{
			UserID:       user.ID,
			Provider:     entity.ProviderCredentials,
			PasswordHash: &hash,
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}
	} else if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return err
	}

	if err := s.resetTokens.MarkUsed(ctx, record.ID); err != nil {
		return err
	}
	if _, err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		s.warn(err, "session revocation after reset failed", user.ID)
	}
	if s.notify != nil {
		if err := s.notify.Notify(ctx, user.ID, "security", "Password changed",
			"Your password was reset. All sessions were signed out."); err != nil {
			s.warn(err, "notification failed", user.ID)
		}
	}
	s.audit(ctx, &user.ID, "", entity.Reset, map[string]any{"stage": "completed"})
	return nil
}

// DeactivateAccount flips the active flag and forces re-authentication
// everywhere. Users are never hard-deleted.
func (s *AuthService) DeactivateAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return err
	}
	if _, err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	s.audit(ctx, &userID, "", entity.Deactivated, nil)
	return nil
}

func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]entity.User, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *AuthService) RevokeUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.sessions.RevokeAll(ctx, userID)
}

// ListSecurityEvents returns a user's most recent security-log entries,
// newest first.
func (s *AuthService) ListSecurityEvents(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	if s.securityLogs == nil {
		return nil, nil
	}
	return s.securityLogs.ListByUser(ctx, userID, limit)
}

// authenticate validates email+password. Unknown email, wrong password and
// an inactive account all come back as ErrInvalidCredentials.
func (s *AuthService) authenticate(ctx context.Context, email, password string, dev DeviceContext) (*entity.User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidInput
	}
	email = utils.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = s.hasher.Verify(dummyPasswordHash, password)
		s.audit(ctx, nil, dev.IP, entity.LoginFailed, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.FindByUserAndProvider(ctx, user.ID, entity.ProviderCredentials)
	if err != nil {
		return nil, err
	}
	if account == nil || account.PasswordHash == nil {
		_ = s.hasher.Verify(dummyPasswordHash, password)
		s.audit(ctx, &user.ID, dev.IP, entity.LoginFailed, map[string]any{"reason": "no_password"})
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(*account.PasswordHash, password) {
		s.audit(ctx, &user.ID, dev.IP, entity.LoginFailed, nil)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.audit(ctx, &user.ID, dev.IP, entity.LoginFailed, map[string]any{"reason": "inactive"})
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) resolveGoogleUser(ctx context.Context, idToken, referralCode string) (*entity.User, error) {
	if s.google == nil || s.linker == nil {
		return nil, ErrTokenInvalid
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	user, _, err := s.linker.Resolve(ctx, *identity, referralCode)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) openSession(ctx context.Context, user *entity.User, dev DeviceContext) (*LoginResult, error) {
	session, pair, err := s.sessions.Create(ctx, user, dev)
	if err != nil {
		return nil, err
	}
	s.afterLogin(ctx, user, session, dev)
	return &LoginResult{User: user, Session: session, Tokens: pair}, nil
}

func (s *AuthService) afterLogin(ctx context.Context, user *entity.User, session *entity.Session, dev DeviceContext) {
	s.audit(ctx, &user.ID, dev.IP, entity.LoginSuccess, map[string]any{
		"device":  session.Device,
		"browser": session.Browser,
	})
	if s.email != nil {
		err := s.email.SendLoginAlert(ctx, user.Email, session.Device, session.Browser, session.Location, dev.IP)
		if err != nil {
			s.warn(err, "login alert email failed", user.ID)
		}
	}
	if s.notify != nil {
		err := s.notify.Notify(ctx, user.ID, "security", "New login",
			"New login from "+session.Device+" · "+session.Browser+" · "+session.Location)
		if err != nil {
			s.warn(err, "notification failed", user.ID)
		}
	}
}

func (s *AuthService) sendVerificationCode(ctx context.Context, user *entity.User) error {
	code, err := s.otp.Issue(ctx, user.Email)
	if err != nil {
		return err
	}
	if s.email != nil {
		if err := s.email.SendVerificationCode(ctx, user.Email, code, user.FirstName); err != nil {
			// Delivery is best-effort; the code can be re-requested.
			s.warn(err, "verification email failed", user.ID)
		}
	}
	return nil
}

func (s *AuthService) audit(ctx context.Context, userID *uuid.UUID, ip string, action entity.SecurityAction, metadata map[string]any) {
	if s.securityLogs == nil {
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
	if err := s.securityLogs.Log(ctx, log); err != nil && s.log != nil {
		s.log.WithError(err).Warn("failed to write security log")
	}
}

func (s *AuthService) warn(err error, message string, userID uuid.UUID) {
	if s.log == nil {
		return
	}
	s.log.WithError(err).WithField("user_id", userID).Warn(message)
}

func (s *AuthService) resetTokenTTL() time.Duration {
	if s.config.ResetTokenTTL > 0 {
		return s.config.ResetTokenTTL
	}
	return time.Hour
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
