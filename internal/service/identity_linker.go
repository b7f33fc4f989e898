package service

import (
	"context"
	"strings"
	"time"

	"propstake/internal/entity"
	"propstake/internal/repository"
	"propstake/internal/utils"

	"github.com/sirupsen/logrus"
)

// ExternalIdentity is a provider-verified OAuth identity.
type ExternalIdentity struct {
	Provider      entity.AccountProvider
	ProviderID    string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	AvatarURL     string
}

// IdentityLinker resolves an external identity to a user: by (provider,
// providerId) first, by normalized email second, creating a fresh
// User+Account pair last.
type IdentityLinker struct {
	users     repository.UserRepository
	accounts  repository.AccountRepository
	referrals repository.ReferralRepository
	clock     Clock
	config    AuthConfig
	log       *logrus.Logger
}

func NewIdentityLinker(
	users repository.UserRepository,
	accounts repository.AccountRepository,
	referrals repository.ReferralRepository,
	clock Clock,
	config AuthConfig,
	log *logrus.Logger,
) *IdentityLinker {
	return &IdentityLinker{
		users:     users,
		accounts:  accounts,
		referrals: referrals,
		clock:     clock,
		config:    config,
		log:       log,
	}
}

// Resolve returns the user for the identity, creating one when needed.
// The second return reports whether a new user was created.
func (l *IdentityLinker) Resolve(ctx context.Context, identity ExternalIdentity, referralCode string) (*entity.User, bool, error) {
	account, err := l.accounts.FindByProviderID(ctx, identity.Provider, identity.ProviderID)
	if err != nil {
		return nil, false, err
	}
	if account != nil {
		user, err := l.users.FindByID(ctx, account.UserID)
		if err != nil {
			return nil, false, err
		}
		if user != nil {
			l.refreshAvatar(ctx, user, identity.AvatarURL)
			return user, false, nil
		}
		// Dangling account without a user: clean it up and resolve as if
		// the provider identity had never been seen.
		if err := l.accounts.Delete(ctx, account.ID); err != nil {
			return nil, false, err
		}
	}

	email := utils.NormalizeEmail(identity.Email)
	user, err := l.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		providerID := identity.ProviderID
		linked := &entity.Account{
			UserID:     user.ID,
			Provider:   identity.Provider,
			ProviderID: &providerID,
		}
		if err := l.accounts.Create(ctx, linked); err != nil {
			return nil, false, err
		}
		if user.AvatarURL == nil && identity.AvatarURL != "" {
			avatar := identity.AvatarURL
			user.AvatarURL = &avatar
			if err := l.users.Update(ctx, user); err != nil {
				return nil, false, err
			}
		}
		return user, false, nil
	}

	user, err = l.createUser(ctx, identity, email, referralCode)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (l *IdentityLinker) createUser(ctx context.Context, identity ExternalIdentity, email, referralCode string) (*entity.User, error) {
	code, err := utils.GenerateReferralCode()
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		Email:        email,
		FirstName:    identity.FirstName,
		LastName:     identity.LastName,
		Role:         entity.UserRoleUser,
		IsActive:     true,
		ReferralCode: code,
	}
	if identity.AvatarURL != "" {
		avatar := identity.AvatarURL
		user.AvatarURL = &avatar
	}
	if identity.EmailVerified {
		now := l.now()
		user.EmailVerifiedAt = &now
	}
	if referralCode != "" {
		referrer, err := l.users.FindByReferralCode(ctx, referralCode)
		if err != nil {
			return nil, err
		}
		if referrer != nil {
			user.ReferredByID = &referrer.ID
		}
	}
	if err := l.users.Create(ctx, user); err != nil {
		return nil, err
	}

	providerID := identity.ProviderID
	account := &entity.Account{
		UserID:     user.ID,
		Provider:   identity.Provider,
		ProviderID: &providerID,
	}
	if err := l.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	if user.ReferredByID != nil && identity.EmailVerified && l.referrals != nil {
		err := l.referrals.CreditSignupBonus(ctx, *user.ReferredByID, user.ID, l.config.ReferrerBonus, l.config.ReferredBonus)
		if err != nil && l.log != nil {
			// Bonus crediting never blocks signup.
			l.log.WithError(err).WithField("user_id", user.ID).Warn("referral bonus credit failed")
		}
	}
	return user, nil
}

// refreshAvatar updates the stored avatar only when the user has none, or the
// stored one is provider-hosted. A deliberately uploaded photo is never
// overwritten by the provider's copy.
func (l *IdentityLinker) refreshAvatar(ctx context.Context, user *entity.User, avatarURL string) {
	if avatarURL == "" {
		return
	}
	if user.AvatarURL != nil && !providerHostedAvatar(*user.AvatarURL) {
		return
	}
	if user.AvatarURL != nil && *user.AvatarURL == avatarURL {
		return
	}
	avatar := avatarURL
	user.AvatarURL = &avatar
	if err := l.users.Update(ctx, user); err != nil && l.log != nil {
		l.log.WithError(err).WithField("user_id", user.ID).Warn("avatar refresh failed")
	}
}

func providerHostedAvatar(url string) bool {
	return strings.Contains(url, "googleusercontent.com")
}

func (l *IdentityLinker) now() time.Time {
	if l.clock == nil {
		return time.Now()
	}
	return l.clock.Now()
}
