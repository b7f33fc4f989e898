package repository

import (
	"context"
	"errors"

	"propstake/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TwoFactorRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.TwoFactorSettings, error)
	Upsert(ctx context.Context, settings *entity.TwoFactorSettings) error
	Update(ctx context.Context, settings *entity.TwoFactorSettings) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type twoFactorRepository struct {
	db *gorm.DB
}

func NewTwoFactorRepository(db *gorm.DB) TwoFactorRepository {
	return &twoFactorRepository{db: db}
}

func (r *twoFactorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.TwoFactorSettings, error) {
	var settings entity.TwoFactorSettings
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&settings).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &settings, err
}

func (r *twoFactorRepository) Upsert(ctx context.Context, settings *entity.TwoFactorSettings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"secret", "enabled_at", "require_on_login", "backup_code_hashes"}),
		}).
		Create(settings).Error
}

func (r *twoFactorRepository) Update(ctx context.Context, settings *entity.TwoFactorSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

func (r *twoFactorRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&entity.TwoFactorSettings{}).
		Error
}
