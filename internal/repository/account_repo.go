package repository

import (
	"context"
	"errors"

	"propstake/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider entity.AccountProvider) (*entity.Account, error)
	FindByProviderID(ctx context.Context, provider entity.AccountProvider, providerID string) (*entity.Account, error)
	UpdatePasswordHash(ctx context.Context, accountID uuid.UUID, hash string) error
	Delete(ctx context.Context, accountID uuid.UUID) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider entity.AccountProvider) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *accountRepository) FindByProviderID(ctx context.Context, provider entity.AccountProvider, providerID string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *accountRepository) UpdatePasswordHash(ctx context.Context, accountID uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Account{}).
		Where("id = ?", accountID).
		Update("password_hash", &hash).
		Error
}

func (r *accountRepository) Delete(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", accountID).
		Delete(&entity.Account{}).
		Error
}
