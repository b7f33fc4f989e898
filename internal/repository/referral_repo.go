package repository

import (
	"context"
	"time"

	"propstake/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferralRepository interface {
	// CreditSignupBonus writes the referral record, both balance credits and
	// both ledger entries in one transaction. All-or-nothing.
	CreditSignupBonus(ctx context.Context, referrerID, referredID uuid.UUID, referrerBonus, referredBonus int64) error
}

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) CreditSignupBonus(ctx context.Context, referrerID, referredID uuid.UUID, referrerBonus, referredBonus int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		referral := &entity.Referral{
			ReferrerID:    referrerID,
			ReferredID:    referredID,
			ReferrerBonus: referrerBonus,
			ReferredBonus: referredBonus,
		}
		if err := tx.Create(referral).Error; err != nil {
			return err
		}
		if err := creditBalance(tx, referrerID, referrerBonus); err != nil {
			return err
		}
		if err := creditBalance(tx, referredID, referredBonus); err != nil {
			return err
		}
		entries := []entity.LedgerEntry{
			{UserID: referrerID, Amount: referrerBonus, Type: "referral_bonus", Description: "Referral signup bonus"},
			{UserID: referredID, Amount: referredBonus, Type: "referral_bonus", Description: "Welcome bonus from referral"},
		}
		return tx.Create(&entries).Error
	})
}

func creditBalance(tx *gorm.DB, userID uuid.UUID, amount int64) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"amount":     gorm.Expr("balances.amount + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(&entity.Balance{UserID: userID, Amount: amount}).Error
}
