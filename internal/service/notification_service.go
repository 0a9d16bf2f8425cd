package service

import (
	"context"

	"eminence/internal/models"
	"eminence/internal/repository"
)

// NotificationService is the recipient's view of their in-app notifications.
type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns the newest notifications for uid.
func (s *NotificationService) List(ctx context.Context, uid string) ([]*models.Notification, error) {
	if uid == "" {
		return nil, models.ErrAuthPending
	}
	return s.notifications.ListForUser(ctx, uid, models.NotificationListLimit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, uid string) (int64, error) {
	if uid == "" {
		return 0, models.ErrAuthPending
	}
	return s.notifications.UnreadCount(ctx, uid)
}

// MarkRead marks one notification read. Only its recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, uid, id string) error {
	if uid == "" {
		return models.ErrAuthPending
	}
	return s.notifications.MarkRead(ctx, id, uid)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, uid string) (int64, error) {
	if uid == "" {
		return 0, models.ErrAuthPending
	}
	return s.notifications.MarkAllRead(ctx, uid)
}
