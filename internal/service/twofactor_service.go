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
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const backupCodeCount = 10

// totpSkew allows two 30-second steps of clock drift either side.
const totpSkew = 2

// TwoFactorService drives the per-user 2FA state machine: no settings row is
// disabled, a row without EnabledAt is provisioned, a row with EnabledAt is
// enabled.
type TwoFactorService struct {
	settings repository.TwoFactorRepository
	clock    Clock
	issuer   string
	log      *logrus.Logger
}

func NewTwoFactorService(settings repository.TwoFactorRepository, clock Clock, issuer string, log *logrus.Logger) *TwoFactorService {
	if strings.TrimSpace(issuer) == "" {
		issuer = "Propstake"
	}
	return &TwoFactorService{settings: settings, clock: clock, issuer: issuer, log: log}
}

// Setup generates a fresh secret and returns it with an otpauth provisioning
// URI. Refuses when 2FA is already enabled; re-running setup before enabling
// replaces the pending secret.
func (s *TwoFactorService) Setup(ctx context.Context, user *entity.User) (secret, uri string, err error) {
	existing, err := s.settings.FindByUserID(ctx, user.ID)
	if err != nil {
		return "", "", err
	}
	if existing.Enabled() {
		return "", "", ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}

	record := &entity.TwoFactorSettings{
		UserID: user.ID,
		Secret: key.Secret(),
	}
	if err := s.settings.Upsert(ctx, record); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// Enable confirms possession of the provisioned secret and mints the backup
// codes. The plaintext codes are returned exactly once; only hashes persist.
func (s *TwoFactorService) Enable(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	settings, err := s.settings.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, ErrTwoFactorNotProvisioned
	}
	if settings.Enabled() {
		return nil, ErrTwoFactorAlreadyEnabled
	}
	if !s.validateTOTP(settings.Secret, code) {
		return nil, ErrInvalidTwoFactorCode
	}

	codes := make([]string, 0, backupCodeCount)
	hashes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		raw, err := utils.GenerateRandomToken(6)
		if err != nil {
			return nil, err
		}
		codes = append(codes, raw)
		hashes = append(hashes, utils.HashToken(raw))
	}
	payload, err := json.Marshal(hashes)
	if err != nil {
		return nil, err
	}

	now := s.now()
	settings.EnabledAt = &now
	settings.BackupCodeHashes = datatypes.JSON(payload)
	if err := s.settings.Update(ctx, settings); err != nil {
		return nil, err
	}
	return codes, nil
}

// VerifyLogin is the login step-up gate. It tries the TOTP code first, then
// the backup codes (consuming the matched one). Fails closed: any error is a
// false, never a panic or leak into the login flow.
func (s *TwoFactorService) VerifyLogin(ctx context.Context, userID uuid.UUID, code string) bool {
	settings, err := s.settings.FindByUserID(ctx, userID)
	if err != nil || !settings.Enabled() {
		return false
	}
	if s.validateTOTP(settings.Secret, code) {
		return true
	}
	return s.consumeBackupCode(ctx, settings, code)
}

// Disable requires a live TOTP code. Backup codes are deliberately rejected
// here: turning 2FA off demands possession of the authenticator itself.
func (s *TwoFactorService) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	settings, err := s.settings.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !settings.Enabled() {
		return ErrTwoFactorNotEnabled
	}
	if !s.validateTOTP(settings.Secret, code) {
		return ErrInvalidTwoFactorCode
	}
	return s.settings.Delete(ctx, userID)
}

// SetRequireOnLogin toggles the login step-up flag. Only meaningful, and only
// settable, while 2FA is enabled.
func (s *TwoFactorService) SetRequireOnLogin(ctx context.Context, userID uuid.UUID, required bool) error {
	settings, err := s.settings.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !settings.Enabled() {
		return ErrTwoFactorNotEnabled
	}
	settings.RequireOnLogin = required
	return s.settings.Update(ctx, settings)
}

// RequiredForLogin reports whether login must demand a 2FA step for the user.
func (s *TwoFactorService) RequiredForLogin(ctx context.Context, userID uuid.UUID) (bool, error) {
	settings, err := s.settings.FindByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return settings.Enabled() && settings.RequireOnLogin, nil
}

func (s *TwoFactorService) consumeBackupCode(ctx context.Context, settings *entity.TwoFactorSettings, code string) bool {
	if len(settings.BackupCodeHashes) == 0 {
		return false
	}
	var hashes []string
	if err := json.Unmarshal(settings.BackupCodeHashes, &hashes); err != nil {
		return false
	}
	submitted := utils.HashToken(code)
	for i, hash := range hashes {
		if hash != submitted {
			continue
		}
		remaining := append(hashes[:i:i], hashes[i+1:]...)
		payload, err := json.Marshal(remaining)
		if err != nil {
			return false
		}
		settings.BackupCodeHashes = datatypes.JSON(payload)
		if err := s.settings.Update(ctx, settings); err != nil {
			// If consumption cannot be persisted the code stays spendable,
			// so the login must not succeed on it.
			if s.log != nil {
				s.log.WithError(err).Warn("failed to consume backup code")
			}
			return false
		}
		return true
	}
	return false
}

func (s *TwoFactorService) validateTOTP(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *TwoFactorService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
