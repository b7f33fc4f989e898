package repository

import (
	"context"
	"errors"
	"time"

	"propstake/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PasswordResetTokenRepository interface {
	Create(ctx context.Context, token *entity.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*entity.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByEmail(ctx context.Context, email string) error
}

type passwordResetTokenRepository struct {
	db *gorm.DB
}

func NewPasswordResetTokenRepository(db *gorm.DB) PasswordResetTokenRepository {
	return &passwordResetTokenRepository{db: db}
}

func (r *passwordResetTokenRepository) Create(ctx context.Context, t *entity.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// FindByToken returns expired and used tokens too so the service can report
// the distinct failure modes. Expired tokens get cleaned up by the caller.
func (r *passwordResetTokenRepository) FindByToken(ctx context.Context, token string) (*entity.PasswordResetToken, error) {
	var record entity.PasswordResetToken
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &record, err
}

func (r *passwordResetTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.PasswordResetToken{}).
		Where("id = ?", id).
		Update("used_at", &now).
		Error
}

func (r *passwordResetTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.PasswordResetToken{}).
		Error
}

func (r *passwordResetTokenRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&entity.PasswordResetToken{}).
		Error
}
