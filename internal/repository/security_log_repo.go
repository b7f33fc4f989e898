package repository

import (
	"context"

	"propstake/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SecurityLogRepository interface {
	Log(ctx context.Context, log *entity.SecurityLog) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error)
}

type securityLogRepository struct {
	db *gorm.DB
}

func NewSecurityLogRepository(db *gorm.DB) SecurityLogRepository {
	return &securityLogRepository{db: db}
}

func (r *securityLogRepository) Log(ctx context.Context, log *entity.SecurityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *securityLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []entity.SecurityLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
