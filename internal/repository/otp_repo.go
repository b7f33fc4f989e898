package repository

import (
	"context"
	"errors"

	"propstake/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OneTimeCodeRepository interface {
	Create(ctx context.Context, code *entity.OneTimeCode) error
	FindLatestByEmail(ctx context.Context, email string) (*entity.OneTimeCode, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByEmail(ctx context.Context, email string) error
}

type oneTimeCodeRepository struct {
	db *gorm.DB
}

func NewOneTimeCodeRepository(db *gorm.DB) OneTimeCodeRepository {
	return &oneTimeCodeRepository{db: db}
}

func (r *oneTimeCodeRepository) Create(ctx context.Context, code *entity.OneTimeCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *oneTimeCodeRepository) FindLatestByEmail(ctx context.Context, email string) (*entity.OneTimeCode, error) {
	var code entity.OneTimeCode
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		First(&code).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &code, err
}

func (r *oneTimeCodeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.OneTimeCode{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).
		Error
}

func (r *oneTimeCodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.OneTimeCode{}).
		Error
}

func (r *oneTimeCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&entity.OneTimeCode{}).
		Error
}
