package service

import (
	"context"

	"propstake/internal/entity"
	"propstake/internal/repository"

	"github.com/google/uuid"
)

// RepoNotificationSink persists notifications through the notification
// repository. Failures are the caller's to swallow; the auth flows treat
// notifications as fire-and-forget.
type RepoNotificationSink struct {
	notifications repository.NotificationRepository
}

func NewRepoNotificationSink(notifications repository.NotificationRepository) *RepoNotificationSink {
	return &RepoNotificationSink{notifications: notifications}
}

func (s *RepoNotificationSink) Notify(ctx context.Context, userID uuid.UUID, kind, title, message string) error {
	return s.notifications.Create(ctx, &entity.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	})
}
