package repository

import (
	"context"
	"errors"
	"time"

	"propstake/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	// FindByRefreshToken and FindByPrevToken return revoked sessions too;
	// the session manager distinguishes revoked from reused from live.
	FindByRefreshToken(ctx context.Context, token string) (*entity.Session, error)
	FindByPrevToken(ctx context.Context, token string) (*entity.Session, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]entity.Session, error)
	Rotate(ctx context.Context, sessionID uuid.UUID, newToken string, rotatedAt, expiresAt time.Time) error
	Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	Revoke(ctx context.Context, sessionID uuid.UUID) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CleanupExpired(ctx context.Context) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *entity.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &session, err
}

func (r *sessionRepository) FindByRefreshToken(ctx context.Context, token string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).
		Where("refresh_token = ?", token).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &session, err
}

func (r *sessionRepository) FindByPrevToken(ctx context.Context, token string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).
		Where("prev_refresh_token = ?", token).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &session, err
}

func (r *sessionRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]entity.Session, error) {
	var sessions []entity.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > NOW()", userID).
		Order("last_active_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) Rotate(ctx context.Context, sessionID uuid.UUID, newToken string, rotatedAt, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Updates(map[string]any{
			"prev_refresh_token": gorm.Expr("refresh_token"),
			"refresh_token":      newToken,
			"token_rotated_at":   &rotatedAt,
			"expires_at":         expiresAt,
			"last_active_at":     rotatedAt,
		}).Error
}

func (r *sessionRepository) Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("id = ?", sessionID).
		Update("last_active_at", at).
		Error
}

func (r *sessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", &now).
		Error
}

func (r *sessionRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", &now)
	return result.RowsAffected, result.Error
}

func (r *sessionRepository) CleanupExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("expires_at < NOW() - INTERVAL '30 days'").
		Delete(&entity.Session{}).
		Error
}
