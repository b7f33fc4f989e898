package service

import (
	"context"
	"fmt"
	"time"

	"propstake/internal/entity"
	"propstake/internal/repository"
	"propstake/internal/utils"
)

const (
	otpTTL         = 10 * time.Minute
	otpMaxAttempts = 5
)

// OtpService issues and verifies short-lived numeric email verification
// codes. One live code per email; codes are single use and die after five
// failed attempts.
type OtpService struct {
	codes repository.OneTimeCodeRepository
	clock Clock
}

func NewOtpService(codes repository.OneTimeCodeRepository, clock Clock) *OtpService {
	return &OtpService{codes: codes, clock: clock}
}

// Issue invalidates any prior code for the email and stores a fresh one.
func (s *OtpService) Issue(ctx context.Context, email string) (string, error) {
	email = utils.NormalizeEmail(email)
	code, err := utils.GenerateNumericCode()
	if err != nil {
		return "", err
	}
	if err := s.codes.DeleteByEmail(ctx, email); err != nil {
		return "", err
	}
	record := &entity.OneTimeCode{
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().Add(otpTTL),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return "", err
	}
	return code, nil
}

func (s *OtpService) Verify(ctx context.Context, email, submitted string) error {
	email = utils.NormalizeEmail(email)
	record, err := s.codes.FindLatestByEmail(ctx, email)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrOtpInvalid
	}
	if s.now().After(record.ExpiresAt) {
		if err := s.codes.Delete(ctx, record.ID); err != nil {
			return err
		}
		return ErrOtpExpired
	}
	if record.Attempts >= otpMaxAttempts {
		if err := s.codes.Delete(ctx, record.ID); err != nil {
			return err
		}
		return ErrTooManyOtpAttempts
	}
	if record.Code != submitted {
		if err := s.codes.IncrementAttempts(ctx, record.ID); err != nil {
			return err
		}
		remaining := otpMaxAttempts - record.Attempts - 1
		return fmt.Errorf("%w: %d attempt(s) remaining", ErrOtpInvalid, remaining)
	}
	return s.codes.Delete(ctx, record.ID)
}

func (s *OtpService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
